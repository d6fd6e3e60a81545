package log

import (
	"io"
	"log/slog"
)

// NewLogger creates the application logger.
//
// Records go to console at Info, or Debug when verbose. When file is not
// nil, records at Warn and above are also written there. All output is
// redacted.
func NewLogger(console, file io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	if console != nil {
		handlers = append(handlers, slog.NewTextHandler(console, &slog.HandlerOptions{Level: level}))
	}
	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}

	return slog.New(NewRedactHandler(NewFanoutHandler(handlers...)))
}
