package telemetry

import (
	"context"
	"log/slog"
	"os"
)

// LogLevel reads the logging level from the environment.
// Recognized values: DEBUG, INFO, WARN, ERROR. Defaults to INFO.
func LogLevel() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger builds and installs the process-wide logger.
//
// LOG_FORMAT selects the output:
//   - "json" (default) — structured output for production
//   - "text" — human-readable output for local development
func SetupLogger() *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     LogLevel(),
		AddSource: LogLevel() == slog.LevelDebug,
	}

	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

type ctxKey string

// CtxLogger is the context key SetupLogger's callers use to carry a logger.
const CtxLogger ctxKey = "logger"

// WithLogger attaches logger to ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, CtxLogger, logger)
}

// FromContext retrieves the logger attached by WithLogger, or the global
// default if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(CtxLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithTaskID returns a logger annotated with the Celery task id.
func WithTaskID(logger *slog.Logger, taskID string) *slog.Logger {
	return logger.With("task_id", taskID)
}

// WithEntryName returns a logger annotated with a scheduled entry's name.
func WithEntryName(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("entry", name)
}
