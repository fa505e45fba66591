package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	// RequestIDKey is the context key for request IDs.
	RequestIDKey contextKey = "request_id"

	// UseCaseIDKey is the context key for the use case being evaluated.
	UseCaseIDKey contextKey = "use_case_id"

	loggerKey contextKey = "logger"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithUseCaseID adds a use case ID to the context.
func WithUseCaseID(ctx context.Context, useCaseID string) context.Context {
	return context.WithValue(ctx, UseCaseIDKey, useCaseID)
}

// GetUseCaseID retrieves the use case ID from the context.
func GetUseCaseID(ctx context.Context) string {
	if id, ok := ctx.Value(UseCaseIDKey).(string); ok {
		return id
	}
	return ""
}

// WithLogger stores logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored on ctx, or slog.Default(), with the
// context's request and use case IDs attached.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.Default()
	}
	if fields := extractContextFields(ctx); len(fields) > 0 {
		return logger.With(fields...)
	}
	return logger
}

func extractContextFields(ctx context.Context) []any {
	var fields []any
	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, string(RequestIDKey), requestID)
	}
	if useCaseID := GetUseCaseID(ctx); useCaseID != "" {
		fields = append(fields, string(UseCaseIDKey), useCaseID)
	}
	return fields
}

// contextHandler adds context fields to records logged with a context
// (InfoContext and friends).
type contextHandler struct {
	slog.Handler
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if requestID := GetRequestID(ctx); requestID != "" {
		r.AddAttrs(slog.String(string(RequestIDKey), requestID))
	}
	if useCaseID := GetUseCaseID(ctx); useCaseID != "" {
		r.AddAttrs(slog.String(string(UseCaseIDKey), useCaseID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{Handler: h.Handler.WithGroup(name)}
}
