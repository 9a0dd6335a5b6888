package middleware

import (
	"net/http"
	"time"

	"github.com/davidbz/ttibu/internal/observability"
)

const (
	traceHeader   = "X-Trace-Id"
	requestHeader = "X-Request-Id"
)

// statusWriter records the response status. Unwrap keeps
// http.ResponseController working for streaming handlers.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Trace injects trace, span and request IDs into every request context
// and logs the request outcome.
func Trace() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			traceID := r.Header.Get(traceHeader)
			if traceID == "" {
				traceID = observability.GenerateTraceID()
			}
			ctx = observability.WithTraceID(ctx, traceID)
			ctx = observability.WithSpanID(ctx, observability.GenerateSpanID())

			requestID := observability.GenerateRequestID()
			ctx = observability.WithRequestID(ctx, requestID)

			w.Header().Set(traceHeader, traceID)
			w.Header().Set(requestHeader, requestID)

			logger := observability.FromContext(ctx)
			logger.Info("request started",
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.String("remote_addr", r.RemoteAddr),
			)

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(ctx))

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request finished",
				observability.Int("status", status),
				observability.Duration("duration", time.Since(start)))
		})
	}
}
