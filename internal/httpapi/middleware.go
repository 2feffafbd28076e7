// Package httpapi binds the HTTP surface from spec §6 to the
// Coordinator, using github.com/go-chi/chi/v5 the way the teacher's
// pkg/transport does: one router, one metrics/tracing middleware
// reading chi's matched route pattern instead of the raw path.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/jsonstorage/internal/telemetry"
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

// metricsMiddleware records Prometheus metrics and an OTel span per
// request, keyed by chi's matched route pattern rather than the raw
// path (so /ns/{ns}/objects/{id}/meta stays one low-cardinality series).
func metricsMiddleware(metrics *telemetry.Metrics, tracer *telemetry.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, span := tracer.Start(r.Context(), "http.request")
			r = r.WithContext(ctx)

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			if span != nil {
				span.End()
			}

			route := routePattern(r)
			metrics.RecordHTTPRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}
