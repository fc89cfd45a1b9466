package reconciliation_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database/dbtest"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
	ledgerPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/ledger/postgres"
	"github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation"
	reconciliationPostgres "github.com/oneroskilfu/ireva-app-sub001/internal/reconciliation/postgres"
)

// creditAfterSnapshot runs credit as soon as the wrapped repository has read
// the wallet.
type creditAfterSnapshot struct {
	reconciliation.RepositoryAPI
	credit func()
}

func (r *creditAfterSnapshot) Snapshot(ctx context.Context, walletID string) (*reconciliation.WalletSnapshot, error) {
	snapshot, err := r.RepositoryAPI.Snapshot(ctx, walletID)
	r.credit()
	return snapshot, err
}

var _ = Describe("Reconciliation", func() {
	var (
		db        *gorm.DB
		ledgerSvc *ledger.Service
		reads     *sqlx.DB
		service   *reconciliation.Service
		ctx       context.Context
	)

	BeforeEach(func() {
		gormDB, sqlxDB, err := dbtest.Open()
		Expect(err).NotTo(HaveOccurred())
		db = gormDB
		reads = sqlxDB
		ctx = context.Background()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		ledgerSvc = ledger.NewService(ledgerPostgres.NewLedgerRepository(db), database.NewTxManager(db), "USDT", logger)
		service = reconciliation.NewService(reconciliationPostgres.NewReconciliationRepository(sqlxDB), logger)
	})

	AfterEach(func() {
		dbtest.Close(db)
	})

	fund := func(userID string, amount int64) *wallet.WalletAccount {
		result, err := ledgerSvc.CreditWallet(ctx, userID, decimal.NewFromInt(amount), "seed-"+userID)
		Expect(err).NotTo(HaveOccurred())
		return result.Wallet
	}

	tamper := func(walletID string, balance int64) {
		Expect(db.Model(&wallet.WalletAccount{}).Where("id = ?", walletID).
			Update("balance", decimal.NewFromInt(balance)).Error).To(Succeed())
	}

	It("reports a balanced wallet", func() {
		w := fund("U1", 1000)
		_, err := ledgerSvc.DebitWallet(ctx, "U1", decimal.NewFromInt(300), "inv-1", wallet.EntryTypeInvestment)
		Expect(err).NotTo(HaveOccurred())
		_, err = ledgerSvc.CreditWallet(ctx, "U1", decimal.NewFromInt(50), "dep-2")
		Expect(err).NotTo(HaveOccurred())
		_, err = ledgerSvc.DebitWallet(ctx, "U1", decimal.NewFromInt(25), "fee-1", wallet.EntryTypeFee)
		Expect(err).NotTo(HaveOccurred())

		report, err := service.Reconcile(ctx, w.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Status).To(Equal(reconciliation.StatusBalanced))
		Expect(report.Discrepancy.IsZero()).To(BeTrue())
		Expect(report.ExpectedBalance.Equal(decimal.NewFromInt(725))).To(BeTrue())
		Expect(report.TransactionCount).To(Equal(int64(4)))
	})

	It("reports the difference between stored balance and entries", func() {
		w := fund("U1", 950)
		tamper(w.ID, 1000)

		report, err := service.Reconcile(ctx, w.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.ActualBalance.Equal(decimal.NewFromInt(1000))).To(BeTrue())
		Expect(report.ExpectedBalance.Equal(decimal.NewFromInt(950))).To(BeTrue())
		Expect(report.Discrepancy.Equal(decimal.NewFromInt(50))).To(BeTrue())
		Expect(report.Status).To(Equal(reconciliation.StatusDiscrepancyFound))
	})

	It("never writes", func() {
		w := fund("U1", 950)
		tamper(w.ID, 1000)

		_, err := service.Reconcile(ctx, w.ID)
		Expect(err).NotTo(HaveOccurred())

		var stored wallet.WalletAccount
		Expect(db.First(&stored, "id = ?", w.ID).Error).To(Succeed())
		Expect(stored.Balance.Equal(decimal.NewFromInt(1000))).To(BeTrue())
	})

	It("returns not found for unknown wallets", func() {
		_, err := service.Reconcile(ctx, "missing")
		Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
	})

	It("stays balanced when a credit commits right after the wallet is read", func() {
		w := fund("U1", 100)

		// Given a credit landing immediately after the snapshot is taken
		racing := &creditAfterSnapshot{
			RepositoryAPI: reconciliationPostgres.NewReconciliationRepository(reads),
			credit: func() {
				_, err := ledgerSvc.CreditWallet(ctx, "U1", decimal.NewFromInt(50), "dep-late")
				Expect(err).NotTo(HaveOccurred())
			},
		}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		// When the wallet is reconciled
		report, err := reconciliation.NewService(racing, logger).Reconcile(ctx, w.ID)

		// Then both sides come from the same read
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Status).To(Equal(reconciliation.StatusBalanced))
		Expect(report.ActualBalance.Equal(decimal.NewFromInt(100))).To(BeTrue())
		Expect(report.TransactionCount).To(Equal(int64(1)))

		after, err := service.Reconcile(ctx, w.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(after.Status).To(Equal(reconciliation.StatusBalanced))
		Expect(after.ExpectedBalance.Equal(decimal.NewFromInt(150))).To(BeTrue())
	})

	It("reconciles every wallet and can filter to discrepancies", func() {
		fund("U1", 100)
		w2 := fund("U2", 200)
		tamper(w2.ID, 150)

		all, err := service.ReconcileAll(ctx, false)
		Expect(err).NotTo(HaveOccurred())
		Expect(all.WalletsChecked).To(Equal(2))
		Expect(all.DiscrepancyCount).To(Equal(1))
		Expect(all.Reports).To(HaveLen(2))

		only, err := service.ReconcileAll(ctx, true)
		Expect(err).NotTo(HaveOccurred())
		Expect(only.Reports).To(HaveLen(1))
		Expect(only.Reports[0].WalletID).To(Equal(w2.ID))
		Expect(only.Reports[0].Discrepancy.Equal(decimal.NewFromInt(-50))).To(BeTrue())
	})

	Describe("Handler", func() {
		var router chi.Router

		BeforeEach(func() {
			handler := reconciliation.NewHandler(service, nil)
			router = chi.NewRouter()
			router.Get("/admin/wallets/{id}/reconcile", handler.ReconcileWallet)
			router.Get("/admin/reconciliation", handler.ReconcileAll)
		})

		It("renders the report", func() {
			w := fund("U1", 950)
			tamper(w.ID, 1000)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/wallets/"+w.ID+"/reconcile", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]interface{}
			Expect(json.NewDecoder(rec.Body).Decode(&body)).To(Succeed())
			Expect(body["discrepancy"]).To(Equal("50"))
			Expect(body["status"]).To(Equal(reconciliation.StatusDiscrepancyFound))
		})

		It("rejects a malformed filter", func() {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/reconciliation?only_discrepancies=maybe", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
