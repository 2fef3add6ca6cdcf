package sink

import (
	"context"
	"fmt"
	"net"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/influxdata/line-protocol/v2/lineprotocol"
	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/operation"
)

const (
	influxDatabase    = "ceph"
	influxMeasurement = "ceph_operation"
)

// Influx writes operations to InfluxDB 1.x using line protocol.
type Influx struct {
	client *retryablehttp.Client
	url    string
}

// NewInflux creates an influx sink for cfg.
func NewInflux(cfg config.InfluxConfig, client *retryablehttp.Client) *Influx {
	q := url.Values{}
	q.Set("db", influxDatabase)
	q.Set("precision", "ns")
	q.Set("u", cfg.User)
	q.Set("p", cfg.Password)

	u := url.URL{
		Scheme:   "http",
		Host:     net.JoinHostPort(cfg.Host, cfg.Port),
		Path:     "/write",
		RawQuery: q.Encode(),
	}
	return &Influx{client: client, url: u.String()}
}

// Name returns the output name.
func (s *Influx) Name() string { return config.OutputInflux }

// Write posts one line protocol point.
func (s *Influx) Write(ctx context.Context, op operation.Operation) error {
	body, err := lineProtocol(op)
	if err != nil {
		return err
	}
	return post(ctx, s.client, s.url, "text/plain; charset=utf-8", body)
}

// Close is a no-op.
func (s *Influx) Close() error { return nil }

// lineProtocol renders op as a single point. Empty tags are omitted.
func lineProtocol(op operation.Operation) ([]byte, error) {
	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Nanosecond)

	enc.StartLine(influxMeasurement)
	// Tags must be added in key order
	for _, tag := range [][2]string{
		{"dst", op.Destination},
		{"kind", op.Kind},
		{"src", op.Source},
	} {
		if tag[1] == "" {
			continue
		}
		enc.AddTag(tag[0], tag[1])
	}

	latency, ok := lineprotocol.FloatValue(op.LatencyMillis())
	if !ok {
		return nil, fmt.Errorf("invalid latency %v", op.Latency)
	}
	enc.AddField("size", lineprotocol.IntValue(int64(op.Size)))
	enc.AddField("latency_ms", latency)
	enc.EndLine(op.Timestamp)

	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode line protocol: %w", err)
	}
	return enc.Bytes(), nil
}
