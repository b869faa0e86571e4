package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/buildmart-backend/api/controllers"
	disputecontrollers "github.com/angelmondragon/buildmart-backend/api/controllers/disputes"
	issuecontrollers "github.com/angelmondragon/buildmart-backend/api/controllers/issues"
	ordercontrollers "github.com/angelmondragon/buildmart-backend/api/controllers/orders"
	settlementcontrollers "github.com/angelmondragon/buildmart-backend/api/controllers/settlements"
	"github.com/angelmondragon/buildmart-backend/api/middleware"
	"github.com/angelmondragon/buildmart-backend/internal/disputes"
	"github.com/angelmondragon/buildmart-backend/internal/issues"
	"github.com/angelmondragon/buildmart-backend/internal/orders"
	"github.com/angelmondragon/buildmart-backend/internal/performance"
	"github.com/angelmondragon/buildmart-backend/internal/settlements"
	"github.com/angelmondragon/buildmart-backend/pkg/config"
	"github.com/angelmondragon/buildmart-backend/pkg/enums"
	"github.com/angelmondragon/buildmart-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/buildmart-backend/pkg/redis"
)

// RedisStore is the Redis surface the HTTP layer uses for readiness, rate
// limiting and idempotent replays.
type RedisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Dependencies are the collaborators NewRouter mounts.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       RedisStore
	Orders      orders.Service
	Issues      issues.Service
	Disputes    disputes.Service
	Settlements settlements.Service
	Performance performance.Service
	Catalog     controllers.CatalogReader
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var redisPinger controllers.Pinger
	var limiter middleware.FixedWindowLimiter
	var idempotencyStore pkgredis.IdempotencyStore
	if deps.Redis != nil {
		redisPinger = deps.Redis
		limiter = deps.Redis
		idempotencyStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, redisPinger))
	})

	// Read-only vendor lookups shown to buyers before they sign in.
	r.Route("/api/v1/vendors", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit, limiter, logg))
		r.Get("/{vendorId}/catalog", controllers.VendorCatalog(deps.Catalog, logg))
		r.Get("/{vendorId}/performance", controllers.VendorPerformance(deps.Performance, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))
		r.Use(middleware.RateLimit(cfg.RateLimit, limiter, logg))

		buyerOrAdmin := middleware.RequireActorType(logg, enums.ActorBuyer, enums.ActorAdmin)
		vendorOrAdmin := middleware.RequireActorType(logg, enums.ActorVendor, enums.ActorAdmin)

		r.Route("/orders", func(r chi.Router) {
			r.With(buyerOrAdmin).Post("/", ordercontrollers.Create(deps.Orders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(deps.Orders, logg))
				r.Get("/history", ordercontrollers.History(deps.Orders, logg))

				r.Group(func(r chi.Router) {
					r.Use(vendorOrAdmin)
					r.Post("/accept", ordercontrollers.Accept(deps.Orders, logg))
					r.Post("/reject", ordercontrollers.Reject(deps.Orders, logg))
					r.Post("/start-processing", ordercontrollers.StartProcessing(deps.Orders, logg))
					r.Post("/ready", ordercontrollers.MarkReady(deps.Orders, logg))
					r.Post("/dispatch", ordercontrollers.Dispatch(deps.Orders, logg))
					r.Post("/deliver", ordercontrollers.Deliver(deps.Orders, logg))
					r.Patch("/items/{itemId}", ordercontrollers.CorrectQuantity(deps.Orders, logg))
				})

				r.Group(func(r chi.Router) {
					r.Use(buyerOrAdmin)
					r.Post("/complete", ordercontrollers.Complete(deps.Orders, logg))
					r.Post("/payments", ordercontrollers.RecordPayment(deps.Orders, logg))
				})
				r.With(middleware.RequireActorType(logg, enums.ActorBuyer)).Post("/rating", ordercontrollers.Rate(deps.Orders, logg))
				r.Post("/cancel", ordercontrollers.Cancel(deps.Orders, logg))

				r.Get("/issues", issuecontrollers.ListForOrder(deps.Issues, deps.Orders, logg))
				r.Post("/issues", issuecontrollers.Report(deps.Issues, logg))
			})
		})

		r.Route("/issues/{issueId}", func(r chi.Router) {
			r.Get("/", issuecontrollers.Detail(deps.Issues, deps.Orders, logg))
			r.Post("/resolve", issuecontrollers.Resolve(deps.Issues, logg))
			r.Post("/escalate", issuecontrollers.Escalate(deps.Issues, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Post("/", disputecontrollers.Create(deps.Disputes, logg))
			r.Route("/{disputeId}", func(r chi.Router) {
				r.Get("/", disputecontrollers.Detail(deps.Disputes, logg))
				r.Get("/timeline", disputecontrollers.Timeline(deps.Disputes, logg))
				r.Post("/evidence", disputecontrollers.AddEvidence(deps.Disputes, logg))
				r.Post("/escalate", disputecontrollers.Escalate(deps.Disputes, logg))
			})
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireActorType(logg, enums.ActorVendor))
			r.Get("/orders", ordercontrollers.VendorList(deps.Orders, logg))
			r.Get("/settlements", settlementcontrollers.VendorList(deps.Settlements, logg))
			r.Get("/performance", controllers.MyPerformance(deps.Performance, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireActorType(logg, enums.ActorAdmin))
			r.Get("/orders", ordercontrollers.VendorList(deps.Orders, logg))
			r.Post("/orders/{orderId}/deductions", ordercontrollers.ApplyDeduction(deps.Orders, logg))
			r.Route("/disputes/{disputeId}", func(r chi.Router) {
				r.Post("/assign", disputecontrollers.Assign(deps.Disputes, logg))
				r.Post("/resolve", disputecontrollers.Resolve(deps.Disputes, logg))
			})
			r.Route("/settlements", func(r chi.Router) {
				r.Post("/run", settlementcontrollers.RunBatch(deps.Settlements, logg))
				r.Get("/", settlementcontrollers.List(deps.Settlements, logg))
				r.Route("/{settlementId}", func(r chi.Router) {
					r.Get("/", settlementcontrollers.Detail(deps.Settlements, logg))
					r.Post("/processed", settlementcontrollers.MarkProcessed(deps.Settlements, logg))
					r.Post("/corrections", settlementcontrollers.CreateCorrective(deps.Settlements, logg))
				})
			})
		})
	})

	return r
}
