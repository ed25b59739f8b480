// Package logging configures colored structured logging with tint.
//
// Usage:
//
//	logger := logging.Setup(slog.LevelInfo)   // stderr, installed as slog default
//	logger := logging.New(w, slog.LevelDebug) // any writer, not installed
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Setup configures colored logging on stderr at the given level and makes it the
// slog default.
func Setup(level slog.Level) *slog.Logger {
	logger := New(os.Stderr, level)
	slog.SetDefault(logger)
	return logger
}

// New returns a tint logger writing to w. Color is disabled unless w is a terminal.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  level <= slog.LevelDebug,
			NoColor:    !isTerminal(w),
		}),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
