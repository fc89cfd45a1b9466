package ledger_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

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
)

var _ = Describe("Ledger Service", func() {
	var (
		db      *gorm.DB
		service *ledger.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		db, _, err = dbtest.Open()
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = ledger.NewService(ledgerPostgres.NewLedgerRepository(db), database.NewTxManager(db), "USDT", slogger)
		ctx = context.Background()
	})

	AfterEach(func() {
		dbtest.Close(db)
	})

	countEntries := func(reference string) int64 {
		var n int64
		Expect(db.Model(&wallet.LedgerEntry{}).Where("reference = ?", reference).Count(&n).Error).To(Succeed())
		return n
	}

	Describe("CreditWallet", func() {
		It("creates the wallet on first credit", func() {
			result, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(100), "pay-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Applied).To(BeTrue())
			Expect(result.Wallet.Currency).To(Equal("USDT"))
			Expect(result.Wallet.Balance.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(result.Entry.Type).To(Equal(wallet.EntryTypeDeposit))
			Expect(result.Entry.BalanceAfter.Equal(decimal.NewFromInt(100))).To(BeTrue())
		})

		It("applies a reference only once", func() {
			first, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(100), "pay-1")
			Expect(err).NotTo(HaveOccurred())

			second, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(100), "pay-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(second.Applied).To(BeFalse())
			Expect(second.Entry.ID).To(Equal(first.Entry.ID))

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(countEntries("pay-1")).To(Equal(int64(1)))
		})

		It("keeps one entry under concurrent credits with the same reference", func() {
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(100), "pay-concurrent")
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(100))).To(BeTrue())
			Expect(countEntries("pay-concurrent")).To(Equal(int64(1)))
		})

		It("sums concurrent credits with distinct references", func() {
			var wg sync.WaitGroup
			for i := 0; i < 5; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(10), fmt.Sprintf("pay-%d", i))
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(50))).To(BeTrue())
			Expect(balance.AvailableBalance.Equal(decimal.NewFromInt(50))).To(BeTrue())
		})

		It("rejects non-positive amounts", func() {
			_, err := service.CreditWallet(ctx, "user-1", decimal.Zero, "pay-zero")
			Expect(err).To(HaveOccurred())
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())

			_, err = service.CreditWallet(ctx, "user-1", decimal.NewFromInt(-5), "pay-neg")
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("requires a reference", func() {
			_, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(5), "")
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})

	Describe("DebitWallet", func() {
		BeforeEach(func() {
			_, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(500), "seed")
			Expect(err).NotTo(HaveOccurred())
		})

		It("debits within the balance", func() {
			result, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(200), "wd-1", wallet.EntryTypeWithdrawal)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Applied).To(BeTrue())
			Expect(result.Wallet.Balance.Equal(decimal.NewFromInt(300))).To(BeTrue())
			Expect(result.Entry.Amount.Equal(decimal.NewFromInt(200))).To(BeTrue())
			Expect(result.Entry.BalanceAfter.Equal(decimal.NewFromInt(300))).To(BeTrue())
		})

		It("rejects an overdraft and leaves the balance untouched", func() {
			_, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(600), "wd-big", wallet.EntryTypeWithdrawal)
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(422))
			Expect(appErr.Code).To(Equal(internal.ErrCodeInsufficientFunds))

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(500))).To(BeTrue())
			Expect(countEntries("wd-big")).To(Equal(int64(0)))
		})

		It("allows a debit of the exact balance", func() {
			result, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(500), "wd-all", wallet.EntryTypeInvestment)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Wallet.Balance.IsZero()).To(BeTrue())
		})

		It("is idempotent per reference and type", func() {
			_, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(100), "wd-1", wallet.EntryTypeWithdrawal)
			Expect(err).NotTo(HaveOccurred())
			again, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(100), "wd-1", wallet.EntryTypeWithdrawal)
			Expect(err).NotTo(HaveOccurred())
			Expect(again.Applied).To(BeFalse())

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(400))).To(BeTrue())
		})

		It("refuses to replay a reference with a different amount", func() {
			_, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(100), "wd-1", wallet.EntryTypeWithdrawal)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.DebitWallet(ctx, "user-1", decimal.NewFromInt(250), "wd-1", wallet.EntryTypeWithdrawal)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.StatusCode).To(Equal(409))
			Expect(appErr.Code).To(Equal(internal.ErrCodeReferenceConflict))

			balance, err := service.GetBalance(ctx, "user-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(balance.Balance.Equal(decimal.NewFromInt(400))).To(BeTrue())
			Expect(countEntries("wd-1")).To(Equal(int64(1)))
		})

		It("rejects credit entry types", func() {
			_, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(10), "x", wallet.EntryTypeDeposit)
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})

		It("returns not found for a user without a wallet", func() {
			_, err := service.DebitWallet(ctx, "nobody", decimal.NewFromInt(10), "wd-x", wallet.EntryTypeWithdrawal)
			Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
		})
	})

	Describe("ListEntries", func() {
		BeforeEach(func() {
			for i := 0; i < 3; i++ {
				_, err := service.CreditWallet(ctx, "user-1", decimal.NewFromInt(100), fmt.Sprintf("dep-%d", i))
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := service.DebitWallet(ctx, "user-1", decimal.NewFromInt(50), "fee-1", wallet.EntryTypeFee)
			Expect(err).NotTo(HaveOccurred())
		})

		It("filters by type and paginates", func() {
			page, err := service.ListEntries(ctx, "user-1", ledger.EntryFilter{Type: wallet.EntryTypeDeposit, PageSize: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Total).To(Equal(int64(3)))
			Expect(page.Entries).To(HaveLen(2))
			Expect(page.Page).To(Equal(1))

			next, err := service.ListEntries(ctx, "user-1", ledger.EntryFilter{Type: wallet.EntryTypeDeposit, Page: 2, PageSize: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(next.Entries).To(HaveLen(1))
		})

		It("rejects an unknown type", func() {
			_, err := service.ListEntries(ctx, "user-1", ledger.EntryFilter{Type: "bonus"})
			Expect(internal.IsType(err, internal.ErrorTypeValidation)).To(BeTrue())
		})
	})
})
