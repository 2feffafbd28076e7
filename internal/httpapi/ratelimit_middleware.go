package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kadirpekel/jsonstorage/internal/ratelimit"
)

// rateLimitMiddleware throttles write methods (POST/PUT/DELETE) per
// namespace, adapted from the teacher's per-session/per-user limiter
// (v2/ratelimit) down to the single scope this service needs.
func rateLimitMiddleware(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ns := chi.URLParam(r, "ns")
			if ns == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.CheckAndRecord(r.Context(), ns)
			if err != nil {
				writeError(w, err)
				return
			}
			if !result.Allowed {
				if result.RetryAfter != nil {
					w.Header().Set("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
				}
				http.Error(w, result.Reason, http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	default:
		return false
	}
}
