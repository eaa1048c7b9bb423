package http

import (
	"context"
	"log/slog"
)

const serviceName = "aptotip"

// httpLogger carries the fixed fields of the public tipping edge.
func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

// logHTTPOperationError records a failed edge operation. Chain-facing
// failures land as 5xx and log at error level; everything the client can
// correct (validation, auth, conflicts) logs at warn.
func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if statusCode >= 500 {
		httpLogger().ErrorContext(ctx, "tipping edge request failed", fields...)
		return
	}
	httpLogger().WarnContext(ctx, "tipping edge request failed", fields...)
}
