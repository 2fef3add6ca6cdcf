package config

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "decode_ceph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestResolve_ReadsGivenPath(t *testing.T) {
	path := writeConfig(t, "outputs: [stdout, carbon]\ncarbon:\n  host: graphite\n")

	cfg := NewResolver(WithLogger(discardLogger())).Resolve(Inputs{Path: path, Verbosity: 2})

	assert.Equal(t, []string{"stdout", "carbon"}, cfg.Outputs)
	require.NotNil(t, cfg.Carbon)
	assert.Equal(t, "graphite", cfg.Carbon.Host)
	assert.Equal(t, LevelDebug, cfg.Verbosity)
	// ConfigPath records the configured default, not the file actually read
	assert.Equal(t, DefaultPath, cfg.ConfigPath)
}

func TestResolve_DefaultPathWhenNoneGiven(t *testing.T) {
	var read string
	r := NewResolver(
		WithLogger(discardLogger()),
		WithReadFile(func(path string) ([]byte, error) {
			read = path
			return []byte("outputs: [influx]\n"), nil
		}),
	)

	cfg := r.Resolve(Inputs{})

	assert.Equal(t, DefaultPath, read)
	assert.Equal(t, []string{"influx"}, cfg.Outputs)
}

func TestResolve_WithDefaultPath(t *testing.T) {
	path := writeConfig(t, "stdout: json\n")

	cfg := NewResolver(WithLogger(discardLogger()), WithDefaultPath(path)).Resolve(Inputs{})

	require.NotNil(t, cfg.Stdout)
	assert.Equal(t, "json", *cfg.Stdout)
	assert.Equal(t, path, cfg.ConfigPath)
}

func TestResolve_MissingFileIsEmptyInput(t *testing.T) {
	cfg := NewResolver(WithLogger(discardLogger())).Resolve(Inputs{
		Path:      filepath.Join(t.TempDir(), "missing.yaml"),
		Verbosity: 1,
	})

	assert.Equal(t, &Config{Outputs: []string{}, Verbosity: LevelInfo}, cfg)
}

func TestResolve_ReadErrorIsEmptyInput(t *testing.T) {
	r := NewResolver(
		WithLogger(discardLogger()),
		WithReadFile(func(string) ([]byte, error) { return nil, fs.ErrPermission }),
	)

	cfg := r.Resolve(Inputs{Path: "/etc/shadow", Verbosity: 3})

	assert.Empty(t, cfg.Outputs)
	assert.Nil(t, cfg.Influx)
	assert.Equal(t, LevelTrace, cfg.Verbosity)
}

func TestResolve_InvalidUTF8IsEmptyInput(t *testing.T) {
	r := NewResolver(
		WithLogger(discardLogger()),
		WithReadFile(func(string) ([]byte, error) { return []byte{'o', 0xff, 0xfe}, nil }),
	)

	cfg := r.Resolve(Inputs{Verbosity: 1})

	assert.Equal(t, &Config{Outputs: []string{}, Verbosity: LevelInfo}, cfg)
}

func TestResolve_InvalidYAMLFallsBack(t *testing.T) {
	path := writeConfig(t, "outputs: [stdout, influx\n")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cfg := NewResolver(WithLogger(logger)).Resolve(Inputs{Path: path, Verbosity: 2})

	assert.Equal(t, &Config{Outputs: []string{}, Verbosity: LevelWarn}, cfg)
	assert.Empty(t, cfg.ConfigPath)
	assert.Contains(t, logs.String(), "requested_verbosity=debug")
}

func TestResolve_InvalidYAMLPreserveVerbosity(t *testing.T) {
	path := writeConfig(t, "influx: {host: a\n")

	cfg := NewResolver(
		WithLogger(discardLogger()),
		WithPreserveVerbosity(true),
	).Resolve(Inputs{Path: path, Verbosity: 2})

	assert.Empty(t, cfg.Outputs)
	assert.Empty(t, cfg.ConfigPath)
	assert.Equal(t, LevelDebug, cfg.Verbosity)
}

func TestResolve_MalformedLaterDocumentFallsBack(t *testing.T) {
	path := writeConfig(t, "outputs: [stdout]\n---\noutputs: [carbon\n")

	cfg := NewResolver(WithLogger(discardLogger())).Resolve(Inputs{Path: path, Verbosity: 2})

	assert.Equal(t, &Config{Outputs: []string{}, Verbosity: LevelWarn}, cfg)
}

func TestResolve_IndependentResults(t *testing.T) {
	r := NewResolver(
		WithLogger(discardLogger()),
		WithReadFile(func(string) ([]byte, error) { return []byte("outputs: [stdout]\n"), nil }),
	)

	a := r.Resolve(Inputs{})
	b := r.Resolve(Inputs{})
	a.Outputs[0] = "carbon"

	assert.Equal(t, []string{"stdout"}, b.Outputs)
}

func TestReadText_WrapsError(t *testing.T) {
	r := NewResolver(WithReadFile(func(string) ([]byte, error) { return nil, fs.ErrNotExist }))

	_, err := r.readText("x")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
