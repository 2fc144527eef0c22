package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhandler "onboard/internal/admin/handler"
	"onboard/internal/platform/health"
	registryhandler "onboard/internal/registry/handler"
	sessionhandler "onboard/internal/session/handler"
	adminmw "onboard/pkg/platform/middleware/admin"
	"onboard/pkg/platform/middleware/request"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultMaxBodyBytes   = 1 << 20
)

// Handlers groups the module handlers the router mounts.
type Handlers struct {
	Sessions *sessionhandler.Handler
	Registry *registryhandler.Handler
	Admin    *adminhandler.Handler
	Health   *health.Handler
}

type Config struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	AdminTokens    adminmw.TokenValidator
	Metrics        *request.Metrics
}

// NewRouter wires all public endpoints with middleware. The email await route
// sits outside the request timeout because it blocks for the poller's whole
// schedule.
func NewRouter(h Handlers, cfg Config, logger *slog.Logger) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}

	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(cfg.Metrics))
	r.Use(request.BodyLimit(cfg.MaxBodyBytes))

	h.Health.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		h.Sessions.RegisterAwait(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(request.Timeout(cfg.RequestTimeout))
		r.Use(request.ContentTypeJSON)

		h.Sessions.Register(r)
		h.Registry.Register(r)
		h.Admin.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(cfg.AdminTokens, logger))
			h.Admin.RegisterAdmin(r)
		})
	})

	return r
}
