package config

import (
	"fmt"
	"log/slog"
	"os"
	"unicode/utf8"
)

// Inputs carries the raw values taken from the command line.
type Inputs struct {
	Path      string // empty means DefaultPath
	Verbosity int    // number of -d occurrences
}

// Resolver combines command line inputs with the configuration file.
type Resolver struct {
	parser      *Parser
	defaultPath string
	readFile    func(path string) ([]byte, error)
	logger      *slog.Logger

	// preserveVerbosity keeps the requested level when the file is not valid YAML.
	preserveVerbosity bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithDefaultPath sets the path read when Inputs.Path is empty. It is also
// recorded as ConfigPath on parsed configs.
func WithDefaultPath(path string) Option {
	return func(r *Resolver) {
		r.defaultPath = path
		r.parser = NewParser(path)
	}
}

// WithReadFile replaces os.ReadFile.
func WithReadFile(fn func(path string) ([]byte, error)) Option {
	return func(r *Resolver) {
		r.readFile = fn
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithPreserveVerbosity keeps the requested verbosity on the fallback config
// returned for an unparsable file. By default the fallback is set to LevelWarn.
func WithPreserveVerbosity(preserve bool) Option {
	return func(r *Resolver) {
		r.preserveVerbosity = preserve
	}
}

// NewResolver creates a resolver reading DefaultPath through os.ReadFile.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		parser:      NewParser(DefaultPath),
		defaultPath: DefaultPath,
		readFile:    os.ReadFile,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads and parses the configuration file. It never fails: an
// unreadable file is parsed as empty text, and unparsable text yields an
// inert config with no sinks.
func (r *Resolver) Resolve(in Inputs) *Config {
	verbosity := LevelFromCount(in.Verbosity)

	path := in.Path
	if path == "" {
		path = r.defaultPath
	}

	raw, err := r.readText(path)
	if err != nil {
		r.logger.Debug("config file not readable, using empty config", "path", path, "error", err)
	}

	cfg, err := r.parser.Parse(raw, verbosity)
	if err != nil {
		cfg = clean()
		if r.preserveVerbosity {
			cfg.Verbosity = verbosity
		}
		r.logger.Warn("config file is not valid yaml, all outputs disabled",
			"path", path,
			"requested_verbosity", verbosity,
			"verbosity", cfg.Verbosity,
			"error", err)
		return cfg
	}

	r.logger.Debug("config resolved",
		"path", path,
		"outputs", cfg.Outputs,
		"verbosity", cfg.Verbosity)
	return cfg
}

// readText reads path as UTF-8 text.
func (r *Resolver) readText(path string) (string, error) {
	data, err := r.readFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read config file: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("config file %s is not valid UTF-8", path)
	}
	return string(data), nil
}
