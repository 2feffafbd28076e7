package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kadirpekel/jsonstorage/internal/coordinator"
	"github.com/kadirpekel/jsonstorage/internal/ratelimit"
	"github.com/kadirpekel/jsonstorage/internal/telemetry"
)

// NewRouter binds the HTTP surface from spec §6 under /ns, plus the ambient
// /healthz and /metrics endpoints from SPEC_FULL §6. limiter may be nil
// to disable write throttling entirely.
func NewRouter(coord *coordinator.Coordinator, metrics *telemetry.Metrics, tracer *telemetry.Tracer, limiter *ratelimit.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware(metrics, tracer))

	h := &handlers{coord: coord}

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/ns", func(r chi.Router) {
		r.Get("/get_namespaces", h.getNamespaces)

		r.Route("/{ns}", func(r chi.Router) {
			r.Use(rateLimitMiddleware(limiter))
			r.Post("/objects", h.createObject)
			r.Get("/objects", h.listObjects)
			r.Get("/", h.listObjects)
			r.Get("/objects/{id}/meta", h.getObjectMeta)
			r.Get("/objects/{id}/body", h.getObjectBody)
			r.Delete("/objects/{id}", h.deleteObject)
			r.Put("/search-schema", h.setSearchSchema)
			r.Post("/search", h.searchObjects)
		})
	})

	return r
}

func (h *handlers) healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
