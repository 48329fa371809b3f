package http

import (
	"cmp"
	"context"
	"log/slog"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return cmp.Or(logger, slog.Default())
}

// handlerLogger prefers the request-scoped logger installed by RequestLogger
// over the handler's own, then tags it with handler and operation.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	logger := cmp.Or(LoggerFromContext(ctx), fallback, slog.Default())
	logger = logger.With(slog.Group("http", "handler", handlerName, "operation", operation))
	if len(attrs) == 0 {
		return logger
	}
	return logger.With(attrs...)
}
