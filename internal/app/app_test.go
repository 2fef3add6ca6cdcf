package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/neox5/decodeceph/internal/config"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestApp_StreamToStdout(t *testing.T) {
	cfg, err := config.Parse("outputs: [stdout]\nstdout: json\n", config.LevelWarn)
	require.NoError(t, err)

	var out bytes.Buffer
	a, err := New(cfg, Options{Stdout: &out, Logger: testLogger()})
	require.NoError(t, err)
	defer a.Close()

	input := strings.Join([]string{
		`{"timestamp":"2024-03-01T10:00:00Z","kind":"write","size":1}`,
		`garbage`,
		`{"timestamp":"2024-03-01T10:00:01Z","kind":"read","size":2}`,
	}, "\n")

	require.NoError(t, a.Stream(context.Background(), strings.NewReader(input)))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"kind":"write"`)
	assert.Contains(t, lines[1], `"kind":"read"`)

	count, err := testutil.GatherAndCount(a.Metrics.Registry(), "decodeceph_operations_total", "decodeceph_sink_writes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestApp_InertConfigDropsOperations(t *testing.T) {
	cfg := config.NewResolver(config.WithLogger(testLogger()),
		config.WithReadFile(func(string) ([]byte, error) { return []byte("outputs: [stdout\n"), nil }),
	).Resolve(config.Inputs{})

	a, err := New(cfg, Options{Logger: testLogger()})
	require.NoError(t, err)

	assert.Equal(t, 0, a.Fanout.Len())
	assert.Nil(t, a.PrometheusExporter)
	assert.Nil(t, a.OTELExporter)
	require.NoError(t, a.Stream(context.Background(), strings.NewReader(`{"kind":"write"}`)))
}

func TestApp_MetricsExporterEnabled(t *testing.T) {
	a, err := New(&config.Config{Outputs: []string{}}, Options{MetricsAddr: "127.0.0.1:0", Logger: testLogger()})
	require.NoError(t, err)
	assert.NotNil(t, a.PrometheusExporter)
	assert.NotNil(t, a.Monitor)
}

func TestApp_StreamStopsOnCancelledContext(t *testing.T) {
	var out bytes.Buffer
	a, err := New(&config.Config{Outputs: []string{"stdout"}}, Options{Stdout: &out, Logger: testLogger()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, a.Stream(ctx, strings.NewReader(`{"kind":"write"}`)))
	assert.Empty(t, out.String())
}

func TestApp_OTELExporterEnabled(t *testing.T) {
	a, err := New(&config.Config{Outputs: []string{}}, Options{
		OTLPEndpoint: "127.0.0.1:4318",
		OTLPProtocol: "grpc",
		Logger:       testLogger(),
	})
	require.NoError(t, err)
	assert.NotNil(t, a.OTELExporter)
}

func TestApp_OTELExporterRejectsProtocol(t *testing.T) {
	_, err := New(&config.Config{Outputs: []string{}}, Options{
		OTLPEndpoint: "127.0.0.1:4318",
		OTLPProtocol: "udp",
		Logger:       testLogger(),
	})
	assert.ErrorContains(t, err, "failed to create otel exporter")
}
