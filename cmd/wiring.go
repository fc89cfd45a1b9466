package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	ledgerPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/ledger/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/notification"
	"github.com/oneroskilfu/ireva-app-sub001/internal/payment"
	paymentPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/payment/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
	reconciliationPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/refund"
	refundPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/refund/postgres"
)

const webhookPath = "/api/v1/webhooks/payment-provider"

type services struct {
	Inbox          payment.WebhookEventRepositoryAPI
	Ledger         *ledger.Service
	Payment        *payment.Service
	Refund         *refund.Service
	Reconciliation *reconciliation.Service
}

func buildServices(cfg *internal.Config, db *dbHandles, provider payment.Provider, publisher events.Publisher, logger *slog.Logger) *services {
	tx := database.NewTxManager(db.Gorm)

	payments := paymentPostgres.NewPaymentRepository(db.Gorm)
	ledgerService := ledger.NewService(ledgerPostgres.NewLedgerRepository(db.Gorm), tx, receiveCurrency(cfg), logger)

	paymentService := payment.NewService(payments, tx, ledgerService, provider, publisher, payment.ServiceConfig{
		SupportedCurrencies: cfg.Payment.Currencies(),
		ReceiveCurrency:     receiveCurrency(cfg),
		CallbackURL:         callbackURL(cfg),
		RequestTimeout:      cfg.Payment.RequestTimeout,
		IntentTTL:           cfg.Payment.IntentTTL,
	}, logger)

	refundService := refund.NewService(payments, ledgerService, refundPostgres.NewAuditRepository(db.Gorm), tx, publisher, logger)
	reconService := reconciliation.NewService(reconciliationPostgres.NewReconciliationRepository(db.Sqlx), logger)

	return &services{
		Inbox:          paymentPostgres.NewWebhookEventRepository(db.Gorm),
		Ledger:         ledgerService,
		Payment:        paymentService,
		Refund:         refundService,
		Reconciliation: reconService,
	}
}

func receiveCurrency(cfg *internal.Config) string {
	if cur := strings.ToUpper(strings.TrimSpace(cfg.Payment.ReceiveCurrency)); cur != "" {
		return cur
	}
	return "USDT"
}

// callbackURL falls back to the public base URL plus the webhook route.
func callbackURL(cfg *internal.Config) string {
	if cfg.Payment.CallbackURL != "" {
		return cfg.Payment.CallbackURL
	}
	base := cfg.Server.BaseURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.Server.Port)
	}
	return strings.TrimRight(base, "/") + webhookPath
}

// newProvider returns the configured provider. The sandbox is also returned
// separately so the caller can shut its callback workers down.
func newProvider(cfg *internal.Config, logger *slog.Logger) (payment.Provider, *paymentgateway.Sandbox) {
	if cfg.Payment.Provider == internal.ProviderModeLive {
		return paymentgateway.NewClient(paymentgateway.Config{
			APIURL:  cfg.Payment.APIURL,
			APIKey:  cfg.Payment.APIKey,
			Timeout: cfg.Payment.RequestTimeout,
		}, logger), nil
	}

	sandbox := paymentgateway.NewSandbox(paymentgateway.SandboxConfig{
		BaseURL:           cfg.Server.BaseURL,
		CallbackURL:       callbackURL(cfg),
		Secret:            cfg.Webhook.Secret,
		SignatureHeader:   cfg.Webhook.SignatureHeader,
		SimulateCallbacks: cfg.Payment.Sandbox.SimulateCallbacks,
		CallbackDelay:     cfg.Payment.Sandbox.CallbackDelay,
		MaxWorkers:        cfg.Payment.Sandbox.MaxWorkers,
		JobQueueSize:      cfg.Payment.Sandbox.JobQueueSize,
	}, logger)
	return sandbox, sandbox
}

// newNotificationPublisher picks Kafka when enabled and the log sink otherwise.
func newNotificationPublisher(cfg *internal.Config, logger *slog.Logger) (notification.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return notification.NewLogPublisher(logger), nil
	}
	publisher, err := notification.NewKafkaPublisher(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("kafka publisher: %w", err)
	}
	return publisher, nil
}
