package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "rotacultural/pkg/domain-errors"
	"rotacultural/pkg/platform/httputil"
	"rotacultural/pkg/platform/middleware/metadata"
	request "rotacultural/pkg/platform/middleware/request"
	"rotacultural/pkg/platform/middleware/requesttime"
)

const requestTimeout = 30 * time.Second

// RouteRegistrar is implemented by module handlers.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options configures the router.
type Options struct {
	Logger  *slog.Logger
	Latency request.LatencyObserver
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Health is consulted by /healthz; nil always reports healthy.
	Health HealthCheck
}

// NewRouter wires the shared middleware chain, the operational endpoints and
// every module's routes.
func NewRouter(opts Options, modules ...RouteRegistrar) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(opts.Logger))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(opts.Logger))
	r.Use(request.Latency(opts.Latency))
	r.Use(request.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler(opts.Health, opts.Logger))
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	for _, m := range modules {
		m.Register(r)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, map[string]string{
			"error": "method_not_allowed",
		})
	})
	return r
}

func healthHandler(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.ErrorContext(ctx, "health check failed",
					"request_id", request.GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
