package logger

import (
	"context"
	"log/slog"

	"github.com/pilacorp/go-did-resolver/did"
)

// Component returns the default logger tagged with the emitting package,
// e.g. "fetcher" or "webvh".
func Component(name string) *slog.Logger {
	return Logger().With("component", name)
}

// ForDID returns a component logger that tags every record with the DID and
// its method, so the records of one resolution can be grouped.
func ForDID(component string, id did.DID) *slog.Logger {
	return Component(component).With("did", id.String(), "method", id.Method)
}

func Debug(msg string, args ...any) { logAt(slog.LevelDebug, msg, args) }

func Info(msg string, args ...any) { logAt(slog.LevelInfo, msg, args) }

func Warn(msg string, args ...any) { logAt(slog.LevelWarn, msg, args) }

func Error(msg string, args ...any) { logAt(slog.LevelError, msg, args) }

// logAt returns before building the record when level is disabled.
func logAt(level slog.Level, msg string, args []any) {
	l := Logger()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, args...)
}
