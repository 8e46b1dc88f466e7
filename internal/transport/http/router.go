// Package httptransport composes the HTTP surface: middleware chain, health
// and metrics endpoints, and the domain handlers. Business logic stays in the
// services; this layer only routes.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	workflowhandler "vouch/internal/workflow/handler"
	"vouch/pkg/platform/httputil"
	"vouch/pkg/platform/middleware/metadata"
	"vouch/pkg/platform/middleware/requestid"
	"vouch/pkg/platform/middleware/requesttime"
)

// HealthCheck probes one dependency; a nil error means healthy.
type HealthCheck func(ctx context.Context) error

// NewRouter wires all endpoints behind the shared middleware chain.
func NewRouter(workflows *workflowhandler.Handler, checks map[string]HealthCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)

	r.Get("/healthz", handleHealth(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	workflows.Register(r)
	return r
}

func handleHealth(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	}
}
