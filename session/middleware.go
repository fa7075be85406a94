package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hazyhaar/ariasnap/internal/idgen"
)

type ctxKey int

const loggerKey ctxKey = iota

var newTraceID = idgen.Prefixed("req_", idgen.UUIDv7())

// traceID tags each request with an id, echoed in X-Trace-ID, and stores a
// request-scoped logger in the context. A well-formed incoming X-Trace-ID
// is kept.
func traceID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := idgen.Parse(r.Header.Get("X-Trace-ID"))
			if err != nil {
				id = newTraceID()
			}
			w.Header().Set("X-Trace-ID", id)
			logger := base.With(
				"trace_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			logger.Debug("session: request")
			ctx := context.WithValue(r.Context(), loggerKey, logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// loggerFrom returns the request logger, or slog.Default().
func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// maxJSONBody caps request bodies.
func maxJSONBody(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
