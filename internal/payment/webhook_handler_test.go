package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/webhook"
	paymentPkg "github.com/oneroskilfu/ireva-app-sub001/internal/payment"
	"github.com/oneroskilfu/ireva-app-sub001/pkg/signature"
)

const webhookSecret = "whsec-test-0123456789abcdef"

var _ = Describe("Webhook Handler", func() {
	var (
		f       *fixture
		handler *paymentPkg.WebhookHandler
		p       *payment.PaymentTransaction
	)

	BeforeEach(func() {
		f = newFixture()
		verifier, err := signature.NewVerifier(webhookSecret, true, f.logger)
		Expect(err).NotTo(HaveOccurred())
		handler = paymentPkg.NewWebhookHandler(f.service, f.inbox, verifier, "X-Signature", 4096, f.logger)

		result, err := f.service.CreateIntent(context.Background(), paymentPkg.CreateIntentInput{
			UserID: "U1", Amount: decimal.NewFromInt(100), Currency: "USDT",
		})
		Expect(err).NotTo(HaveOccurred())
		p = result.Payment
	})

	AfterEach(func() {
		f.close()
	})

	callbackBody := func(status string) []byte {
		return []byte(fmt.Sprintf(
			`{"id":%q,"order_id":%q,"status":%q,"price_amount":"100","price_currency":"USDT","receive_currency":"USDT"}`,
			*p.ProviderOrderID, p.OrderID, status))
	}

	deliver := func(body []byte, sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-provider", bytes.NewReader(body))
		if sig != "" {
			req.Header.Set("X-Signature", sig)
		}
		w := httptest.NewRecorder()
		handler.HandlePaymentCallback(w, req)
		return w
	}

	signed := func(body []byte) *httptest.ResponseRecorder {
		return deliver(body, signature.Sign([]byte(webhookSecret), body))
	}

	inboxRows := func() []webhook.Event {
		var rows []webhook.Event
		Expect(f.db.Order("received_at ASC").Find(&rows).Error).To(Succeed())
		return rows
	}

	decode := func(w *httptest.ResponseRecorder) paymentPkg.WebhookResponse {
		var resp paymentPkg.WebhookResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		return resp
	}

	It("credits once when the same paid callback arrives twice", func() {
		body := callbackBody("paid")

		first := signed(body)
		Expect(first.Code).To(Equal(http.StatusOK))
		Expect(decode(first).Outcome).To(Equal(paymentPkg.OutcomeApplied))

		second := signed(body)
		Expect(second.Code).To(Equal(http.StatusOK))
		Expect(decode(second).Outcome).To(Equal(paymentPkg.OutcomeDuplicate))

		balance, err := f.ledger.GetBalance(context.Background(), "U1")
		Expect(err).NotTo(HaveOccurred())
		Expect(balance.Balance.Equal(decimal.NewFromInt(100))).To(BeTrue())

		rows := inboxRows()
		Expect(rows).To(HaveLen(2))
		Expect(rows[0].SignatureValid).To(BeTrue())
		Expect(rows[0].OrderID).To(Equal(p.OrderID))
	})

	It("accepts a sha256= prefixed signature", func() {
		body := callbackBody("confirming")
		w := deliver(body, "sha256="+signature.Sign([]byte(webhookSecret), body))
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("rejects a wrong signature with 401 and stores nothing", func() {
		w := deliver(callbackBody("paid"), signature.Sign([]byte("another-secret"), callbackBody("paid")))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(inboxRows()).To(BeEmpty())

		var stored payment.PaymentTransaction
		Expect(f.db.First(&stored, "id = ?", p.ID).Error).To(Succeed())
		Expect(stored.Status).To(Equal(payment.StatusPending))
	})

	It("rejects a missing signature with 401", func() {
		w := deliver(callbackBody("paid"), "")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).To(ContainSubstring("MISSING_SIGNATURE"))
	})

	It("verifies the raw bytes, not a re-encoding", func() {
		body := []byte(strings.Replace(string(callbackBody("paid")), `,"status"`, `,  "status"`, 1))
		w := signed(body)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Outcome).To(Equal(paymentPkg.OutcomeApplied))
	})

	It("answers 200 and records a rejection for a malformed payload", func() {
		body := []byte(`{"id":"1","order_id":"x"}`)
		w := signed(body)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Status).To(Equal("rejected"))

		rows := inboxRows()
		Expect(rows).To(HaveLen(1))
		Expect(rows[0].Outcome).To(Equal(webhook.OutcomeRejected))
		Expect(rows[0].ProcessingError).NotTo(BeNil())
	})

	It("rejects unsupported statuses without touching the payment", func() {
		w := signed(callbackBody("teleported"))
		Expect(w.Code).To(Equal(http.StatusOK))
		resp := decode(w)
		Expect(resp.Status).To(Equal("rejected"))
		Expect(resp.Message).To(ContainSubstring("unsupported status"))

		var stored payment.PaymentTransaction
		Expect(f.db.First(&stored, "id = ?", p.ID).Error).To(Succeed())
		Expect(stored.Status).To(Equal(payment.StatusPending))
	})

	It("accepts a numeric provider id", func() {
		Expect(f.db.Model(&payment.PaymentTransaction{}).Where("id = ?", p.ID).
			Update("provider_order_id", "4521").Error).To(Succeed())
		body := []byte(fmt.Sprintf(
			`{"id":4521,"order_id":%q,"status":"paid","price_amount":100,"price_currency":"usdt"}`, p.OrderID))

		w := signed(body)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Outcome).To(Equal(paymentPkg.OutcomeApplied))
	})

	It("answers 200 for an unknown order", func() {
		body := []byte(`{"id":"9","order_id":"missing","status":"paid","price_amount":"100","price_currency":"USDT"}`)
		w := signed(body)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w).Status).To(Equal("error"))
		Expect(inboxRows()[0].Outcome).To(Equal(webhook.OutcomeRejected))
	})

	It("refuses oversized bodies", func() {
		body := []byte(`{"id":"` + strings.Repeat("a", 5000) + `"}`)
		w := signed(body)
		Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
	})

	Context("without a secret outside production", func() {
		BeforeEach(func() {
			verifier, err := signature.NewVerifier("", false, f.logger)
			Expect(err).NotTo(HaveOccurred())
			handler = paymentPkg.NewWebhookHandler(f.service, f.inbox, verifier, "X-Signature", 4096, f.logger)
		})

		It("processes unsigned callbacks and marks them unverified", func() {
			w := deliver(callbackBody("paid"), "")
			Expect(w.Code).To(Equal(http.StatusOK))

			rows := inboxRows()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].SignatureValid).To(BeFalse())
		})
	})
})
