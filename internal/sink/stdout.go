package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/operation"
)

// FormatJSON selects JSON lines on the stdout sink; any other value prints text.
const FormatJSON = "json"

// Stdout prints operations to a writer.
type Stdout struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewStdout creates a stdout sink writing to w in the given format.
func NewStdout(w io.Writer, format string) *Stdout {
	return &Stdout{w: w, json: format == FormatJSON}
}

// Name returns the output name.
func (s *Stdout) Name() string { return config.OutputStdout }

// Write prints a single operation line.
func (s *Stdout) Write(_ context.Context, op operation.Operation) error {
	var line []byte
	if s.json {
		data, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("failed to encode operation: %w", err)
		}
		line = append(data, '\n')
	} else {
		line = fmt.Appendf(nil, "%s %s %s -> %s %s size=%d latency=%s\n",
			op.Timestamp.UTC().Format(time.RFC3339Nano),
			op.Kind,
			op.Source,
			op.Destination,
			op.Object,
			op.Size,
			op.Latency)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}
	return nil
}

// Close is a no-op; the writer is owned by the caller.
func (s *Stdout) Close() error { return nil }
