package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	// DefaultOTELInterval is the push interval of the OTLP exporter.
	DefaultOTELInterval = 30 * time.Second

	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

// OTELOptions configure the OTLP push exporter.
type OTELOptions struct {
	Endpoint string // host:port of the collector
	Protocol string // ProtocolHTTP (default) or ProtocolGRPC
	Interval time.Duration
	Headers  map[string]string
	Version  string // reported as service.version
}

// OTELExporter pushes the self-monitoring metrics to an OTEL collector.
type OTELExporter struct {
	endpoint      string
	interval      time.Duration
	meterProvider *sdkmetric.MeterProvider
	cancelFunc    context.CancelFunc
}

// NewOTELExporter creates an exporter pushing metrics to opts.Endpoint.
func NewOTELExporter(opts OTELOptions, metrics *Metrics) (*OTELExporter, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultOTELInterval
	}

	exp, err := newOTLPExporter(opts)
	if err != nil {
		return nil, err
	}
	reader := sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(opts.Interval))

	e, err := newOTELExporter(reader, opts.Version, metrics)
	if err != nil {
		return nil, err
	}
	e.endpoint = opts.Endpoint
	e.interval = opts.Interval
	return e, nil
}

// newOTELExporter wires the instruments to reader.
func newOTELExporter(reader sdkmetric.Reader, version string, metrics *Metrics) (*OTELExporter, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", namespace),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	if err := registerOTELInstruments(meterProvider.Meter(namespace), metrics); err != nil {
		_ = meterProvider.Shutdown(context.Background())
		return nil, err
	}

	return &OTELExporter{meterProvider: meterProvider}, nil
}

// Start begins periodic metric export and blocks until ctx is cancelled.
func (e *OTELExporter) Start(ctx context.Context) error {
	slog.Info("starting otel exporter",
		"endpoint", e.endpoint,
		"push_interval", e.interval,
	)

	readCtx, cancel := context.WithCancel(ctx)
	e.cancelFunc = cancel

	// The periodic reader pushes on its own
	<-readCtx.Done()
	return nil
}

// Stop flushes pending metrics and shuts the exporter down.
func (e *OTELExporter) Stop() error {
	slog.Info("shutting down otel exporter")

	if e.cancelFunc != nil {
		e.cancelFunc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return e.meterProvider.Shutdown(ctx)
}
