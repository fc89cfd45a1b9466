package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/auth"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database/dbtest"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/events"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	ledgerPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/ledger/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/payment"
	paymentPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/payment/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ratelimit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
	reconciliationPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/refund"
	refundPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/refund/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/transport/rest"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/signature"
)

const (
	jwtSecret     = "router-test-secret-at-least-32-bytes"
	webhookSecret = "whsec_router_test"
)

var _ = Describe("RegisterAllRoutes", func() {
	var (
		db      *gorm.DB
		router  *chi.Mux
		tokens  *auth.JWTTokenGenerator
		bus     *events.EventBus
		sandbox *paymentgateway.Sandbox
	)

	do := func(method, path, token string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewReader(body))
		req.RemoteAddr = "10.1.1.1:4000"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	decode := func(rec *httptest.ResponseRecorder) map[string]interface{} {
		var out map[string]interface{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed(), rec.Body.String())
		return out
	}

	token := func(userID, role string) string {
		t, err := tokens.GenerateToken(userID, role, time.Hour)
		Expect(err).ToNot(HaveOccurred())
		return t
	}

	BeforeEach(func() {
		gdb, xdb, err := dbtest.Open()
		Expect(err).ToNot(HaveOccurred())
		db = gdb
		DeferCleanup(dbtest.Close, db)

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		tx := database.NewTxManager(db)
		bus = events.NewEventBus(logger)

		ledgerService := ledger.NewService(ledgerPostgres.NewLedgerRepository(db), tx, "USDT", logger)

		sandbox = paymentgateway.NewSandbox(paymentgateway.SandboxConfig{}, logger)
		DeferCleanup(sandbox.Shutdown)

		payments := paymentPostgres.NewPaymentRepository(db)
		paymentService := payment.NewService(payments, tx, ledgerService, sandbox, bus, payment.ServiceConfig{
			SupportedCurrencies: []string{"USDT", "USDC"},
			ReceiveCurrency:     "USDT",
			CallbackURL:         "http://localhost/api/v1/webhooks/payment-provider",
			RequestTimeout:      time.Second,
			IntentTTL:           time.Hour,
		}, logger)

		verifier, err := signature.NewVerifier(webhookSecret, true, logger)
		Expect(err).ToNot(HaveOccurred())

		refundService := refund.NewService(payments, ledgerService, refundPostgres.NewAuditRepository(db), tx, bus, logger)
		reconService := reconciliation.NewService(reconciliationPostgres.NewReconciliationRepository(xdb), logger)

		sqlDB, err := db.DB()
		Expect(err).ToNot(HaveOccurred())

		tokens = auth.NewJWTTokenGenerator(jwtSecret, "ireva")
		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health:         rest.NewHealthHandler(sqlDB, nil),
			Auth:           auth.NewHandler(tokens, logger),
			Payment:        payment.NewHandler(paymentService, logger),
			Webhook:        payment.NewWebhookHandler(paymentService, paymentPostgres.NewWebhookEventRepository(db), verifier, payment.DefaultSignatureHeader, 1<<20, logger),
			Ledger:         ledger.NewHandler(ledgerService, logger),
			Refund:         refund.NewHandler(refundService, logger),
			Reconciliation: reconciliation.NewHandler(reconService, logger),
		}, rest.WebhookLimits{Limiter: ratelimit.NewMemoryLimiter(3, time.Minute)}, logger)
	})

	It("serves liveness and readiness without authentication", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "", nil, nil).Code).To(Equal(http.StatusOK))

		rec := do(http.MethodGet, "/api/v1/health", "", nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)["status"]).To(Equal("healthy"))
	})

	It("carries a payment from intent to credited wallet to refund", func() {
		investor := token("user-1", internal.RoleInvestor)
		admin := token("admin-1", internal.RoleAdmin)

		// Given a payment intent created by the investor
		rec := do(http.MethodPost, "/api/v1/payments", investor, []byte(`{"amount":"100","currency":"USDT"}`), nil)
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		paymentID := decode(rec)["transactionId"].(string)

		rec = do(http.MethodGet, "/api/v1/payments/"+paymentID, investor, nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK))
		orderID := decode(rec)["orderId"].(string)

		// When the provider reports it paid with a valid signature
		body := []byte(fmt.Sprintf(`{"id":"sandbox-%s","order_id":"%s","status":"paid","price_amount":"100","price_currency":"USDT"}`, orderID, orderID))
		headers := map[string]string{payment.DefaultSignatureHeader: signature.Sign([]byte(webhookSecret), body)}
		rec = do(http.MethodPost, "/api/v1/webhooks/payment-provider", "", body, headers)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decode(rec)["status"]).To(Equal("ok"))
		bus.Wait()

		// Then the wallet holds the deposit
		rec = do(http.MethodGet, "/api/v1/wallets/user-1", investor, nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		Expect(decode(rec)["wallet"].(map[string]interface{})["balance"]).To(Equal("100"))

		// And investors cannot reach admin routes
		rec = do(http.MethodPost, "/api/v1/admin/payments/"+paymentID+"/refund", investor, []byte(`{"reason":"mistake"}`), nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		// When an admin refunds it
		rec = do(http.MethodPost, "/api/v1/admin/payments/"+paymentID+"/refund", admin, []byte(`{"reason":"duplicate charge"}`), nil)
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		Expect(decode(rec)["status"]).To(Equal("refunded"))

		// Then the wallet reconciles at zero
		rec = do(http.MethodGet, "/api/v1/wallets/user-1", admin, nil, nil)
		walletID := decode(rec)["wallet"].(map[string]interface{})["id"].(string)

		rec = do(http.MethodGet, "/api/v1/admin/wallets/"+walletID+"/reconcile", admin, nil, nil)
		Expect(rec.Code).To(Equal(http.StatusOK), rec.Body.String())
		Expect(decode(rec)["status"]).To(Equal(reconciliation.StatusBalanced))
	})

	It("keeps other users out of a wallet", func() {
		rec := do(http.MethodGet, "/api/v1/wallets/user-1", token("user-2", internal.RoleInvestor), nil, nil)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("requires a bearer token on authenticated routes", func() {
		Expect(do(http.MethodPost, "/api/v1/payments", "", []byte(`{}`), nil).Code).To(Equal(http.StatusUnauthorized))
		Expect(do(http.MethodGet, "/api/v1/admin/reconciliation", "", nil, nil).Code).To(Equal(http.StatusUnauthorized))
	})

	It("rate limits the webhook per client", func() {
		body := []byte(`{}`)
		for i := 0; i < 3; i++ {
			rec := do(http.MethodPost, "/api/v1/webhooks/payment-provider", "", body, nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		}
		rec := do(http.MethodPost, "/api/v1/webhooks/payment-provider", "", body, nil)
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).ToNot(BeEmpty())
	})
})
