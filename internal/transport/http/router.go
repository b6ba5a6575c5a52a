package httptransport

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustid/pkg/platform/middleware/admin"
	"trustid/pkg/platform/middleware/request"
)

// Routes mounts a feature's handlers on a router group.
type Routes interface {
	Register(r chi.Router)
}

// AdminRoutes mounts operator-only handlers.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// PublicRoutes mounts handlers reachable without a session.
type PublicRoutes interface {
	RegisterPublic(r chi.Router)
}

// Config carries everything NewRouter wires. Auth guards every route in
// Authenticated.
type Config struct {
	Logger         *slog.Logger
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
	AdminToken     string
	Auth           func(http.Handler) http.Handler
	Metrics        *request.Metrics

	Health        Routes
	Public        []PublicRoutes
	Authenticated []Routes
	Admin         []AdminRoutes
}

// NewRouter builds the HTTP surface: probes and /metrics at the root, the
// JSON API behind the shared middleware stack.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(request.ClientMetadata(cfg.TrustedProxies))
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Latency(cfg.Metrics, routePattern))

	r.Handle("/metrics", promhttp.Handler())
	if cfg.Health != nil {
		cfg.Health.Register(r)
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.ContentTypeJSON)

		for _, routes := range cfg.Public {
			routes.RegisterPublic(r)
		}

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth)
			for _, routes := range cfg.Authenticated {
				routes.Register(r)
			}
		})

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
			for _, routes := range cfg.Admin {
				routes.RegisterAdmin(r)
			}
		})
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
