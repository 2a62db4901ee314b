package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/tenantq/internal/api/handler"
	apimw "github.com/notifyhub/tenantq/internal/api/middleware"
	"github.com/notifyhub/tenantq/internal/service"
	"github.com/notifyhub/tenantq/internal/tenant"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.QueueService,
	mgr *tenant.Manager,
	maxClaimBatch int,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	qh := handler.NewQueueHandler(svc, maxClaimBatch, logger)
	th := handler.NewTenantHandler(mgr, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Messages — /poll must be registered before /{eventType} so chi
		// does not treat the literal string "poll" as an event type.
		r.Get("/messages/poll", qh.Poll)
		r.Post("/messages/{id}/done", qh.Complete)
		r.Post("/messages/{eventType}", qh.Publish)

		// Queue census
		r.Get("/queues/depth", qh.Depths)

		// Tenant lifecycle
		r.Post("/tenants", th.Onboard)
		r.Get("/tenants", th.List)
		r.Get("/tenants/{id}/connection", th.ConnectionInfo)
		r.Delete("/tenants/{id}", th.Teardown)
	})

	return r
}
