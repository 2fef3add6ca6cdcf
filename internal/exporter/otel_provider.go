package exporter

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newOTLPExporter creates the OTLP transport selected by opts.Protocol.
func newOTLPExporter(opts OTELOptions) (sdkmetric.Exporter, error) {
	switch opts.Protocol {
	case "", ProtocolHTTP:
		httpOpts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(opts.Endpoint),
			otlpmetrichttp.WithInsecure(), // TODO: Add TLS support later
		}
		if len(opts.Headers) > 0 {
			httpOpts = append(httpOpts, otlpmetrichttp.WithHeaders(opts.Headers))
		}
		exp, err := otlpmetrichttp.New(context.Background(), httpOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
		}
		return exp, nil

	case ProtocolGRPC:
		grpcOpts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(opts.Endpoint),
			otlpmetricgrpc.WithInsecure(),
		}
		if len(opts.Headers) > 0 {
			grpcOpts = append(grpcOpts, otlpmetricgrpc.WithHeaders(opts.Headers))
		}
		exp, err := otlpmetricgrpc.New(context.Background(), grpcOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		return exp, nil

	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", opts.Protocol)
	}
}
