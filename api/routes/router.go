package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shipdesk/shipdesk-backend/api/controllers"
	carriercontrollers "github.com/shipdesk/shipdesk-backend/api/controllers/carrier"
	ordercontrollers "github.com/shipdesk/shipdesk-backend/api/controllers/orders"
	shipmentcontrollers "github.com/shipdesk/shipdesk-backend/api/controllers/shipments"
	webhookcontrollers "github.com/shipdesk/shipdesk-backend/api/controllers/webhooks"
	"github.com/shipdesk/shipdesk-backend/api/middleware"
	"github.com/shipdesk/shipdesk-backend/internal/carrier"
	"github.com/shipdesk/shipdesk-backend/internal/dispatch"
	"github.com/shipdesk/shipdesk-backend/internal/imports"
	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/internal/shipments"
	"github.com/shipdesk/shipdesk-backend/internal/webhooks"
	"github.com/shipdesk/shipdesk-backend/pkg/config"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	pkgredis "github.com/shipdesk/shipdesk-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer needs for idempotent
// replays and webhook throttling.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Orders    orders.Service
	Dispatch  dispatch.Service
	Imports   imports.Service
	Carrier   carrier.Service
	Shipments shipments.Service
	Webhooks  webhooks.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisStore RedisStore,
	metricsHandler http.Handler,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	webhookPolicy := middleware.NewRateLimitPolicy(
		"webhooks",
		cfg.Webhooks.RateWindow,
		cfg.Webhooks.RateIPLimit,
		cfg.Webhooks.RateOwnerLimit,
	)
	idempotent := middleware.Idempotency(redisStore, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisStore,
		}, logg))
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Use(middleware.RateLimit(webhookPolicy, redisStore, logg))
		r.Post("/wix/{ownerId}", webhookcontrollers.Wix(svc.Webhooks, cfg.Webhooks.WixSecret, logg))
		r.Post("/shopify/{ownerId}", webhookcontrollers.Shopify(svc.Webhooks, cfg.Webhooks.ShopifySecret, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(svc.Orders, logg))
			r.With(idempotent).Post("/", ordercontrollers.Create(svc.Orders, logg))
			r.Get("/deleted", ordercontrollers.ListDeleted(svc.Orders, logg))
			r.Get("/stats", ordercontrollers.Stats(svc.Orders, logg))
			r.With(idempotent).Post("/import", ordercontrollers.Import(svc.Imports, logg))
			r.With(idempotent).Post("/bulk/dispatch", ordercontrollers.BulkDispatch(svc.Dispatch, logg))
			r.With(idempotent).Post("/bulk/delete", ordercontrollers.BulkDelete(svc.Dispatch, logg))

			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(svc.Orders, logg))
				r.Patch("/", ordercontrollers.Update(svc.Orders, logg))
				r.Delete("/", ordercontrollers.Delete(svc.Orders, logg))
				r.Post("/restore", ordercontrollers.Restore(svc.Orders, logg))
				r.Get("/logs", ordercontrollers.Logs(svc.Orders, logg))
				r.Post("/status", ordercontrollers.UpdateStatus(svc.Dispatch, logg))
				r.Post("/stage", ordercontrollers.AdvanceStage(svc.Dispatch, logg))
				r.With(idempotent).Post("/dispatch", ordercontrollers.Dispatch(svc.Dispatch, logg))
				r.Get("/shipments", shipmentcontrollers.ListForOrder(svc.Shipments, logg))
			})
		})

		r.Route("/v1/shipments", func(r chi.Router) {
			r.Get("/", shipmentcontrollers.List(svc.Shipments, logg))
			r.Post("/{shipmentId}/refresh", shipmentcontrollers.Refresh(svc.Shipments, logg))
		})

		r.Route("/v1/carrier/settings", func(r chi.Router) {
			r.Get("/", carriercontrollers.GetSettings(svc.Carrier, logg))
			r.Put("/", carriercontrollers.PutSettings(svc.Carrier, logg))
			r.Post("/test", carriercontrollers.TestSettings(svc.Carrier, logg))
		})
	})

	return r
}
