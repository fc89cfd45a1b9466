package ledger_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database/dbtest"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	ledgerPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/ledger/postgres"
)

var _ = Describe("Ledger Handler", func() {
	var (
		db      *gorm.DB
		service *ledger.Service
		router  chi.Router
	)

	BeforeEach(func() {
		var err error
		db, _, err = dbtest.Open()
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = ledger.NewService(ledgerPostgres.NewLedgerRepository(db), database.NewTxManager(db), "USDT", slogger)
		handler := ledger.NewHandler(service, slogger)

		router = chi.NewRouter()
		router.Get("/wallets/{userId}", handler.GetWallet)
		router.Get("/wallets/{userId}/entries", handler.ListEntries)
		router.Post("/wallets/{userId}/withdrawals", handler.Withdraw)

		_, err = service.CreditWallet(context.Background(), "user-1", decimal.NewFromInt(500), "seed")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		dbtest.Close(db)
	})

	do := func(method, path, body string, principal *internal.Principal) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if principal != nil {
			req = req.WithContext(internal.ContextWithPrincipal(req.Context(), *principal))
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	owner := &internal.Principal{UserID: "user-1", Role: internal.RoleInvestor}

	It("returns the caller's wallet", func() {
		w := do(http.MethodGet, "/wallets/user-1", "", owner)
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp ledger.WalletResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Wallet.Balance.Equal(decimal.NewFromInt(500))).To(BeTrue())
	})

	It("forbids reading another investor's wallet", func() {
		w := do(http.MethodGet, "/wallets/user-1", "", &internal.Principal{UserID: "user-2", Role: internal.RoleInvestor})
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("lets an admin read any wallet", func() {
		w := do(http.MethodGet, "/wallets/user-1", "", &internal.Principal{UserID: "ops", Role: internal.RoleAdmin})
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	It("requires a principal", func() {
		w := do(http.MethodGet, "/wallets/user-1", "", nil)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("lists entries", func() {
		w := do(http.MethodGet, "/wallets/user-1/entries?type=deposit", "", owner)
		Expect(w.Code).To(Equal(http.StatusOK))

		var page ledger.EntryPage
		Expect(json.NewDecoder(w.Body).Decode(&page)).To(Succeed())
		Expect(page.Total).To(Equal(int64(1)))
		Expect(page.Entries[0].Reference).To(Equal("seed"))
	})

	It("rejects a bad page parameter", func() {
		w := do(http.MethodGet, "/wallets/user-1/entries?page=zero", "", owner)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("withdraws once per reference", func() {
		w := do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"200","reference":"wd-1"}`, owner)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"200","reference":"wd-1"}`, owner)
		Expect(w.Code).To(Equal(http.StatusOK))

		var resp ledger.MutationResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Applied).To(BeFalse())
		Expect(resp.Wallet.Balance.Equal(decimal.NewFromInt(300))).To(BeTrue())
	})

	It("answers 409 when a reference is reused for another amount", func() {
		w := do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"200","reference":"wd-1"}`, owner)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"150","reference":"wd-1"}`, owner)
		Expect(w.Code).To(Equal(http.StatusConflict))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeReferenceConflict)))
	})

	It("rejects an overdraft with 422", func() {
		w := do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"600","reference":"wd-2"}`, owner)
		Expect(w.Code).To(Equal(http.StatusUnprocessableEntity))
		Expect(w.Body.String()).To(ContainSubstring(string(internal.ErrCodeInsufficientFunds)))
	})

	It("rejects unknown fields", func() {
		w := do(http.MethodPost, "/wallets/user-1/withdrawals", `{"amount":"1","reference":"r","extra":true}`, owner)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})
