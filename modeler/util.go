package modeler

import (
	"context"
	"log/slog"
)

// LevelTrace is the slog level used for per-instruction translation logs.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace logs at LevelTrace through the default logger.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
