package config

import "log/slog"

// Level is the logging verbosity requested on the command line.
type Level int

const (
	LevelWarn Level = iota
	LevelInfo
	LevelDebug
	LevelTrace
)

// SlogTrace sits one step below slog.LevelDebug.
const SlogTrace = slog.LevelDebug - 4

// LevelFromCount maps the number of -d occurrences to a Level.
func LevelFromCount(n int) Level {
	switch {
	case n <= 0:
		return LevelWarn
	case n == 1:
		return LevelInfo
	case n == 2:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// String returns the lower-case level name.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelDebug:
		return "debug"
	case LevelTrace:
		return "trace"
	default:
		return "warn"
	}
}

// SlogLevel converts the level for use with a slog handler.
func (l Level) SlogLevel() slog.Level {
	switch l {
	case LevelInfo:
		return slog.LevelInfo
	case LevelDebug:
		return slog.LevelDebug
	case LevelTrace:
		return SlogTrace
	default:
		return slog.LevelWarn
	}
}
