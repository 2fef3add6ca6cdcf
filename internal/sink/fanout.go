package sink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neox5/decodeceph/internal/operation"
)

// Recorder counts fanout activity.
type Recorder interface {
	Operation()
	SinkWrite(sink string)
	SinkError(sink string)
}

type nopRecorder struct{}

func (nopRecorder) Operation()       {}
func (nopRecorder) SinkWrite(string) {}
func (nopRecorder) SinkError(string) {}

// Fanout writes every operation to all sinks.
type Fanout struct {
	sinks    []Sink
	recorder Recorder
	logger   *slog.Logger
}

// NewFanout creates a fanout over sinks. recorder and logger may be nil.
func NewFanout(sinks []Sink, recorder Recorder, logger *slog.Logger) *Fanout {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{sinks: sinks, recorder: recorder, logger: logger}
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Write writes op to every sink. A failing sink does not stop the others;
// all failures are returned joined.
func (f *Fanout) Write(ctx context.Context, op operation.Operation) error {
	f.recorder.Operation()

	var errs []error
	for _, s := range f.sinks {
		if err := s.Write(ctx, op); err != nil {
			f.recorder.SinkError(s.Name())
			f.logger.Debug("sink write failed", "sink", s.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		f.recorder.SinkWrite(s.Name())
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
