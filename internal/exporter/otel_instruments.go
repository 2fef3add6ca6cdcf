package exporter

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// registerOTELInstruments creates observable instruments mirroring Metrics and
// a callback that fills them from a registry snapshot on every collection.
func registerOTELInstruments(meter otelmetric.Meter, metrics *Metrics) error {
	operations, err := meter.Float64ObservableCounter(namespace+".operations",
		otelmetric.WithDescription("Total number of decoded operations read from the input stream"))
	if err != nil {
		return fmt.Errorf("failed to create counter %q: %w", "operations", err)
	}
	sinkWrites, err := meter.Float64ObservableCounter(namespace+".sink.writes",
		otelmetric.WithDescription("Total number of operations written per sink"))
	if err != nil {
		return fmt.Errorf("failed to create counter %q: %w", "sink.writes", err)
	}
	sinkErrors, err := meter.Float64ObservableCounter(namespace+".sink.errors",
		otelmetric.WithDescription("Total number of failed writes per sink"))
	if err != nil {
		return fmt.Errorf("failed to create counter %q: %w", "sink.errors", err)
	}
	cpu, err := meter.Float64ObservableGauge(namespace+".process.cpu_percent",
		otelmetric.WithDescription("Process CPU usage as sampled by the resource monitor"))
	if err != nil {
		return fmt.Errorf("failed to create gauge %q: %w", "process.cpu_percent", err)
	}
	rss, err := meter.Float64ObservableGauge(namespace+".process.resident_memory",
		otelmetric.WithDescription("Process resident set size as sampled by the resource monitor"),
		otelmetric.WithUnit("By"))
	if err != nil {
		return fmt.Errorf("failed to create gauge %q: %w", "process.resident_memory", err)
	}
	goroutines, err := meter.Float64ObservableGauge(namespace+".goroutines",
		otelmetric.WithDescription("Number of goroutines as sampled by the resource monitor"))
	if err != nil {
		return fmt.Errorf("failed to create gauge %q: %w", "goroutines", err)
	}

	_, err = meter.RegisterCallback(
		func(ctx context.Context, observer otelmetric.Observer) error {
			s, err := metrics.Snapshot()
			if err != nil {
				return err
			}
			slog.Debug("otel push", "operations", s.Operations)

			observer.ObserveFloat64(operations, s.Operations)
			for name, v := range s.SinkWrites {
				observer.ObserveFloat64(sinkWrites, v,
					otelmetric.WithAttributes(attribute.String("sink", name)))
			}
			for name, v := range s.SinkErrors {
				observer.ObserveFloat64(sinkErrors, v,
					otelmetric.WithAttributes(attribute.String("sink", name)))
			}
			observer.ObserveFloat64(cpu, s.CPUPercent)
			observer.ObserveFloat64(rss, s.RSSBytes)
			observer.ObserveFloat64(goroutines, s.Goroutines)
			return nil
		},
		operations, sinkWrites, sinkErrors, cpu, rss, goroutines,
	)
	if err != nil {
		return fmt.Errorf("failed to register callback: %w", err)
	}
	return nil
}
