package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/neox5/decodeceph/internal/config"
	"github.com/neox5/decodeceph/internal/exporter"
	"github.com/neox5/decodeceph/internal/monitor"
	"github.com/neox5/decodeceph/internal/operation"
	"github.com/neox5/decodeceph/internal/sink"
)

// DefaultMonitorInterval is the resource sampling period.
const DefaultMonitorInterval = 5 * time.Second

// Options holds settings that do not come from the configuration file.
type Options struct {
	MetricsAddr     string // empty disables the Prometheus endpoint
	OTLPEndpoint    string // empty disables the OTLP push exporter
	OTLPProtocol    string
	Version         string
	MonitorInterval time.Duration
	Stdout          io.Writer
	Logger          *slog.Logger
}

// App holds initialized application components.
type App struct {
	Config             *config.Config
	Metrics            *exporter.Metrics
	Fanout             *sink.Fanout
	PrometheusExporter *exporter.PrometheusExporter
	OTELExporter       *exporter.OTELExporter
	Monitor            *monitor.Monitor

	logger *slog.Logger
}

// New initializes the application from a resolved configuration.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := opts.MonitorInterval
	if interval <= 0 {
		interval = DefaultMonitorInterval
	}

	metrics := exporter.NewMetrics()

	sinks := sink.New(cfg, sink.Options{
		Stdout:      opts.Stdout,
		Logger:      logger,
		HTTPRetries: sink.DefaultHTTPRetries,
	})
	if len(sinks) == 0 {
		logger.Warn("no outputs enabled, decoded operations will be dropped")
	}

	var promExporter *exporter.PrometheusExporter
	if opts.MetricsAddr != "" {
		promExporter = exporter.NewPrometheusExporter(opts.MetricsAddr, exporter.DefaultPath, metrics.Registry())
	}

	var otelExporter *exporter.OTELExporter
	if opts.OTLPEndpoint != "" {
		e, err := exporter.NewOTELExporter(exporter.OTELOptions{
			Endpoint: opts.OTLPEndpoint,
			Protocol: opts.OTLPProtocol,
			Version:  opts.Version,
		}, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create otel exporter: %w", err)
		}
		otelExporter = e
	}

	mon, err := monitor.New(interval, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}

	return &App{
		Config:             cfg,
		Metrics:            metrics,
		Fanout:             sink.NewFanout(sinks, metrics, logger),
		PrometheusExporter: promExporter,
		OTELExporter:       otelExporter,
		Monitor:            mon,
		logger:             logger,
	}, nil
}

// Stream decodes operations from r and writes them to the enabled sinks
// until r is exhausted or ctx is cancelled. Malformed records and sink
// failures are logged and skipped.
func (a *App) Stream(ctx context.Context, r io.Reader) error {
	dec := operation.NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		op, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, operation.ErrMalformed) {
			a.logger.Warn("skipping operation", "error", err)
			continue
		}
		if err != nil {
			return err
		}

		if err := a.Fanout.Write(ctx, op); err != nil {
			a.logger.Warn("failed to write operation", "kind", op.Kind, "error", err)
		}
	}
}

// Close releases the sinks.
func (a *App) Close() error {
	return a.Fanout.Close()
}
