// Package operation defines decoded Ceph operation records and reads them
// from a newline-delimited JSON stream.
package operation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrMalformed is returned for a stream line that is not a valid record.
var ErrMalformed = errors.New("malformed operation record")

// maxLineSize bounds a single record line.
const maxLineSize = 1 << 20

// Operation is a single decoded Ceph client operation.
type Operation struct {
	Timestamp   time.Time
	Source      string
	Destination string
	Kind        string // e.g. read, write, stat
	Object      string
	Size        uint64
	Latency     time.Duration
}

type wireOperation struct {
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"src"`
	Destination string    `json:"dst"`
	Kind        string    `json:"kind"`
	Object      string    `json:"object"`
	Size        uint64    `json:"size"`
	LatencyMs   float64   `json:"latency_ms"`
}

// LatencyMillis returns the latency in fractional milliseconds.
func (o Operation) LatencyMillis() float64 {
	return float64(o.Latency) / float64(time.Millisecond)
}

// MarshalJSON encodes latency as latency_ms.
func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireOperation{
		Timestamp:   o.Timestamp,
		Source:      o.Source,
		Destination: o.Destination,
		Kind:        o.Kind,
		Object:      o.Object,
		Size:        o.Size,
		LatencyMs:   o.LatencyMillis(),
	})
}

// UnmarshalJSON decodes latency_ms into Latency.
func (o *Operation) UnmarshalJSON(data []byte) error {
	var w wireOperation
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*o = Operation{
		Timestamp:   w.Timestamp,
		Source:      w.Source,
		Destination: w.Destination,
		Kind:        w.Kind,
		Object:      w.Object,
		Size:        w.Size,
		Latency:     time.Duration(w.LatencyMs * float64(time.Millisecond)),
	}
	return nil
}

// Decoder reads operations from a newline-delimited JSON stream.
type Decoder struct {
	scanner *bufio.Scanner
	line    int
	now     func() time.Time
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Decoder{
		scanner: scanner,
		now:     time.Now,
	}
}

// Next returns the next operation, or io.EOF at the end of the stream.
// Records without a timestamp are stamped with the current time.
func (d *Decoder) Next() (Operation, error) {
	for d.scanner.Scan() {
		d.line++
		line := bytes.TrimSpace(d.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var op Operation
		if err := json.Unmarshal(line, &op); err != nil {
			return Operation{}, fmt.Errorf("%w: line %d: %w", ErrMalformed, d.line, err)
		}
		if op.Kind == "" {
			return Operation{}, fmt.Errorf("%w: line %d: missing kind", ErrMalformed, d.line)
		}
		if op.Timestamp.IsZero() {
			op.Timestamp = d.now()
		}
		return op, nil
	}

	if err := d.scanner.Err(); err != nil {
		return Operation{}, fmt.Errorf("failed to read operations: %w", err)
	}
	return Operation{}, io.EOF
}
