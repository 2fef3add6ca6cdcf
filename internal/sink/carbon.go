package sink

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/marpaia/graphite-golang"
	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/operation"
)

// pathEscaper keeps user supplied values from adding path segments.
var pathEscaper = strings.NewReplacer(".", "_", " ", "_", "/", "_")

// Carbon writes operations to a Graphite carbon daemon using the plaintext protocol.
type Carbon struct {
	mu        sync.Mutex
	graphite  *graphite.Graphite
	connected bool
}

// NewCarbon creates a carbon sink. The connection is opened on first write.
func NewCarbon(cfg config.CarbonConfig, timeout time.Duration) (*Carbon, error) {
	port, err := net.LookupPort("tcp", cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid carbon port %q: %w", cfg.Port, err)
	}
	return &Carbon{
		graphite: &graphite.Graphite{
			Host:     cfg.Host,
			Port:     port,
			Protocol: "tcp",
			Timeout:  timeout,
			Prefix:   cfg.RootKey,
		},
	}, nil
}

// Name returns the output name.
func (s *Carbon) Name() string { return config.OutputCarbon }

// Write sends the size and latency of op. A failed write drops the
// connection so the next write redials.
func (s *Carbon) Write(ctx context.Context, op operation.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.graphite.Connect(); err != nil {
			return fmt.Errorf("failed to connect to carbon: %w", err)
		}
		s.connected = true
	}

	if err := s.graphite.SendMetrics(metrics(op)); err != nil {
		s.reset()
		return fmt.Errorf("failed to write to carbon: %w", err)
	}
	return nil
}

// Close closes the connection if open.
func (s *Carbon) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	return s.graphite.Disconnect()
}

func (s *Carbon) reset() {
	_ = s.graphite.Disconnect()
	s.connected = false
}

// metrics returns the size and latency metrics of op, relative to the root key.
func metrics(op operation.Operation) []graphite.Metric {
	prefix := pathEscaper.Replace(op.Kind)
	ts := op.Timestamp.Unix()
	return []graphite.Metric{
		graphite.NewMetric(prefix+".size", strconv.FormatUint(op.Size, 10), ts),
		graphite.NewMetric(prefix+".latency_ms", strconv.FormatFloat(op.LatencyMillis(), 'f', -1, 64), ts),
	}
}
