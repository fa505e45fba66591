package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"keystone-mrm/arbiter/pkg/telemetry/logging"
	"keystone-mrm/arbiter/pkg/telemetry/tracing"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID adopts the caller's X-Request-ID or generates one, echoes it on
// the response, and stores it with the server logger in the request context.
// Handlers log through logging.FromContext so every line carries the ID.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		ctx := logging.WithLogger(logging.WithRequestID(r.Context(), id), s.logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// instrument opens a server span and records request metrics under the
// matched route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	tel := s.deps.Telemetry
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		done := tel.Metrics().RequestStarted()
		defer done()

		ctx := tracing.Extract(r.Context(), r.Header)
		ctx, span := tel.Tracer().Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := routePattern(r)
		status := statusOf(ww)
		span.SetName(r.Method + " " + route)
		tracing.SetHTTPAttributes(span, r.Method, route, status)
		tel.Metrics().RecordRequest(r.Method, route, status, time.Since(start))
	})
}

// logRequests writes one structured line per request: info for success,
// warn for client errors and error for server errors.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		logger := logging.FromContext(ctx)

		logger.Debug("request started",
			"method", r.Method,
			"path", r.URL.Path,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := statusOf(ww)
		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"route", routePattern(r),
			"status", status,
			"bytes", ww.BytesWritten(),
			"latency_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.UserAgent(),
		}
		if traceID := tracing.TraceID(ctx); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		// The logger already carries the context IDs.
		logger.Log(context.Background(), level, "request completed", attrs...)
	})
}

// recoverer turns a handler panic into a 500 without leaking details.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logging.FromContext(r.Context()).Error("panic in handler",
				"error", rec,
				"method", r.Method,
				"path", r.URL.Path,
				"stack", string(debug.Stack()),
			)
			s.respondError(w, r, http.StatusInternalServerError, CodeInternal, fmt.Errorf("internal error"))
		}()
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at MaxBodyBytes.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.MaxBodyBytes > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// requireStore rejects decision-log requests when persistence is disabled.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Store == nil {
			s.respondError(w, r, http.StatusServiceUnavailable, CodeStorageDisabled, errStorageDisabled)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routePattern returns the chi route pattern once routing has run, so
// metric and span labels stay bounded.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if ww.Status() == 0 {
		return http.StatusOK
	}
	return ww.Status()
}
