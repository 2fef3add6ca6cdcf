package exporter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPath is the HTTP path metrics are served on.
const DefaultPath = "/metrics"

// PrometheusExporter provides an HTTP server for Prometheus metrics.
type PrometheusExporter struct {
	addr   string
	path   string
	server *http.Server
}

// NewPrometheusExporter creates a new Prometheus HTTP exporter for registry.
func NewPrometheusExporter(addr, path string, registry *prometheus.Registry) *PrometheusExporter {
	mux := http.NewServeMux()

	handler := promhttp.InstrumentMetricHandler(registry, promhttp.HandlerFor(
		registry,
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	))
	mux.Handle(path, loggingMiddleware(handler))

	return &PrometheusExporter{
		addr: addr,
		path: path,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the HTTP handler serving the metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return e.server.Handler
}

// Start begins serving HTTP requests and blocks until ctx is cancelled.
func (e *PrometheusExporter) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		slog.Info("starting prometheus exporter", "addr", e.addr, "path", e.path)
		if err := e.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return e.Stop()
	}
}

// Stop gracefully stops the exporter.
func (e *PrometheusExporter) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down prometheus exporter")
	return e.server.Shutdown(ctx)
}

// loggingMiddleware logs scrape requests when debug logging is enabled
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("prometheus scrape", "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
