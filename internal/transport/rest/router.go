package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/oneroskilfu/ireva-app-sub001/internal/auth"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	"github.com/oneroskilfu/ireva-app-sub001/internal/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ratelimit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/refund"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport/middleware"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport/swagger"
)

// Handlers groups everything the router mounts. Nil handlers leave their
// routes unmounted.
type Handlers struct {
	Health         *HealthHandler
	Auth           *auth.Handler
	Payment        *payment.Handler
	Webhook        *payment.WebhookHandler
	Ledger         *ledger.Handler
	Refund         *refund.Handler
	Reconciliation *reconciliation.Handler
	OpenAPI        *swagger.Spec
}

type WebhookLimits struct {
	Limiter           ratelimit.Limiter
	TrustForwardedFor bool
}

func RegisterAllRoutes(router chi.Router, h Handlers, limits WebhookLimits, logger *slog.Logger) {
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if h.OpenAPI != nil {
		router.Method(http.MethodGet, "/openapi.yml", h.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		if h.Webhook != nil {
			r.Group(func(wr chi.Router) {
				if limits.Limiter != nil {
					wr.Use(middleware.RateLimit(limits.Limiter, limits.TrustForwardedFor, logger))
				}
				wr.Post("/webhooks/payment-provider", h.Webhook.HandlePaymentCallback)
			})
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.Payment != nil {
				pr.Post("/payments", h.Payment.CreatePayment)
				pr.Get("/payments/{id}", h.Payment.GetPayment)
			}

			if h.Ledger != nil {
				pr.Route("/wallets/{userId}", func(wr chi.Router) {
					wr.Get("/", h.Ledger.GetWallet)
					wr.Get("/entries", h.Ledger.ListEntries)
					wr.Post("/withdrawals", h.Ledger.Withdraw)
				})
			}

			pr.Route("/admin", func(ar chi.Router) {
				ar.Use(h.Auth.RequireAdmin)

				if h.Refund != nil {
					ar.Post("/payments/{id}/refund", h.Refund.RefundPayment)
				}
				if h.Reconciliation != nil {
					ar.Get("/wallets/{id}/reconcile", h.Reconciliation.ReconcileWallet)
					ar.Get("/reconciliation", h.Reconciliation.ReconcileAll)
				}
			})
		})
	})
}
