// Package log wires the process-wide slog default used by every binary.
// Components take a *slog.Logger and narrow it with WithModule.
package log

import (
	"log/slog"
	"os"
	"strings"
)

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Setup installs a text handler on stderr at the named level. Unknown names
// fall back to info.
func Setup(logLevel string) {
	level, ok := levels[strings.ToLower(logLevel)]
	if !ok {
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with the component name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
