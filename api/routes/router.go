package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftworkhq/settlement-backend/api/controllers"
	"github.com/craftworkhq/settlement-backend/api/middleware"
	"github.com/craftworkhq/settlement-backend/internal/earnings"
	"github.com/craftworkhq/settlement-backend/internal/orders"
	"github.com/craftworkhq/settlement-backend/internal/payouts"
	"github.com/craftworkhq/settlement-backend/internal/pricing"
	"github.com/craftworkhq/settlement-backend/internal/settlement"
	"github.com/craftworkhq/settlement-backend/pkg/config"
	"github.com/craftworkhq/settlement-backend/pkg/logger"
	"github.com/craftworkhq/settlement-backend/pkg/redis"
)

// RouterParams bundle everything the HTTP surface needs.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *redis.Client
	Pricing    *pricing.Calculator
	Orders     orders.Service
	Settlement settlement.Service
	Earnings   earnings.Service
	Payouts    payouts.Repository
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		var store redis.IdempotencyStore
		if params.Redis != nil {
			store = params.Redis
		}
		r.Use(middleware.Idempotency(store, logg))

		r.Post("/quotes", controllers.Quote(params.Pricing, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(params.Orders, logg))
			r.Route("/{orderID}", func(r chi.Router) {
				r.Get("/", controllers.GetOrder(params.Orders, logg))
				r.Get("/payment-status", controllers.OrderPaymentStatus(params.Settlement, logg))
				r.Post("/transition", controllers.TransitionOrder(params.Orders, logg))
				r.Post("/accept", controllers.AcceptOrder(params.Settlement, logg))
				r.Post("/start", controllers.StartOrder(params.Settlement, logg))
				r.Post("/deliver", controllers.DeliverOrder(params.Settlement, logg))
				r.Post("/review", controllers.ReviewOrder(params.Settlement, logg))
				r.Post("/release", controllers.ReleaseOrderFunds(params.Settlement, logg))
				r.Post("/cancel", controllers.CancelOrder(params.Settlement, logg))
				r.Post("/reconcile", controllers.ReconcileOrder(params.Settlement, logg))
			})
		})

		r.Route("/sellers/{sellerID}", func(r chi.Router) {
			r.Get("/earnings", controllers.SellerEarnings(params.Earnings, logg))
			r.Put("/payout-account", controllers.UpsertPayoutAccount(params.Payouts, logg))
		})
	})

	return r
}
