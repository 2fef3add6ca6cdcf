// Package sink writes decoded operations to the outputs enabled in the
// configuration.
package sink

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/operation"
)

const (
	// DefaultHTTPRetries is the retry budget of the HTTP based sinks.
	DefaultHTTPRetries = 2

	// DefaultTimeout bounds a single request or dial.
	DefaultTimeout = 5 * time.Second
)

// Sink receives decoded operations.
type Sink interface {
	Name() string
	Write(ctx context.Context, op operation.Operation) error
	Close() error
}

// Options tune sink construction.
type Options struct {
	Stdout      io.Writer // defaults to os.Stdout
	Logger      *slog.Logger
	HTTPRetries int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.HTTPRetries < 0 {
		o.HTTPRetries = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}

// New builds the sinks named in cfg.Outputs, in order. Names that are unknown,
// repeated, or whose section is missing from the configuration are skipped.
func New(cfg *config.Config, opts Options) []Sink {
	opts = opts.withDefaults()
	logger := opts.Logger

	var sinks []Sink
	seen := make(map[string]bool)

	for _, name := range cfg.Outputs {
		if seen[name] {
			logger.Warn("output listed more than once, ignoring duplicate", "output", name)
			continue
		}
		seen[name] = true

		switch name {
		case config.OutputStdout:
			format := ""
			if cfg.Stdout != nil {
				format = *cfg.Stdout
			}
			sinks = append(sinks, NewStdout(opts.Stdout, format))

		case config.OutputInflux:
			if cfg.Influx == nil {
				logger.Warn("influx output enabled without influx configuration, skipping")
				continue
			}
			sinks = append(sinks, NewInflux(*cfg.Influx, newHTTPClient(logger, opts.HTTPRetries, opts.Timeout)))

		case config.OutputElasticsearch:
			if cfg.Elasticsearch == nil {
				logger.Warn("elasticsearch output enabled without elasticsearch host, skipping")
				continue
			}
			sinks = append(sinks, NewElasticsearch(*cfg.Elasticsearch, newHTTPClient(logger, opts.HTTPRetries, opts.Timeout)))

		case config.OutputCarbon:
			if cfg.Carbon == nil {
				logger.Warn("carbon output enabled without carbon host, skipping")
				continue
			}
			carbon, err := NewCarbon(*cfg.Carbon, opts.Timeout)
			if err != nil {
				logger.Warn("invalid carbon configuration, skipping", "error", err)
				continue
			}
			sinks = append(sinks, carbon)

		default:
			logger.Warn("unknown output, skipping", "output", name)
			continue
		}

		logger.Info("output enabled", "output", name)
	}

	return sinks
}
