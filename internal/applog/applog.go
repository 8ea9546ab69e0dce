// Package applog wires the engine's structured logger, matching the
// teacher's backend/cmd/mddb/main.go: tint over a colorable,
// TTY-detecting writer instead of the plain slog.TextHandler the root
// cmd/mddb/main.go uses.
package applog

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New builds a *slog.Logger that writes leveled, colorized output to
// stderr when it is a terminal, and plain text otherwise. level is one
// of "debug", "info", "warn", "error"; anything else defaults to info.
func New(level string) *slog.Logger {
	return slog.New(tint.NewHandler(writer(), &tint.Options{
		Level:      parseLevel(level),
		TimeFormat: "15:04:05",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

func writer() io.Writer {
	return colorable.NewColorable(os.Stderr)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
