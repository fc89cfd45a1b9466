package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
)

type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) ledger.RepositoryAPI {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) EnsureWallet(ctx context.Context, userID, currency string) error {
	now := time.Now().UTC()
	w := &wallet.WalletAccount{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Currency:           currency,
		Balance:            decimal.Zero,
		AvailableBalance:   decimal.Zero,
		PendingDeposits:    decimal.Zero,
		PendingWithdrawals: decimal.Zero,
		LastUpdated:        now,
		CreatedAt:          now,
	}
	return database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(w).Error
}

func (r *LedgerRepository) GetWalletForUpdate(ctx context.Context, userID string) (*wallet.WalletAccount, error) {
	var w wallet.WalletAccount
	err := database.ForUpdate(database.Conn(ctx, r.db)).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ledger.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *LedgerRepository) GetWalletByUserID(ctx context.Context, userID string) (*wallet.WalletAccount, error) {
	var w wallet.WalletAccount
	err := database.Conn(ctx, r.db).Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ledger.ErrWalletNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (r *LedgerRepository) FindEntry(ctx context.Context, walletID, reference string, entryType wallet.EntryType) (*wallet.LedgerEntry, error) {
	var e wallet.LedgerEntry
	err := database.Conn(ctx, r.db).
		Where("wallet_id = ? AND reference = ? AND type = ?", walletID, reference, entryType).
		First(&e).Error
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// InsertEntry relies on the (wallet_id, reference, type) unique index; a
// conflicting insert is skipped instead of aborting the transaction.
func (r *LedgerRepository) InsertEntry(ctx context.Context, entry *wallet.LedgerEntry) (bool, error) {
	res := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "wallet_id"}, {Name: "reference"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *LedgerRepository) UpdateBalances(ctx context.Context, w *wallet.WalletAccount) error {
	return database.Conn(ctx, r.db).Model(&wallet.WalletAccount{}).
		Where("id = ?", w.ID).
		Updates(map[string]interface{}{
			"balance":           w.Balance,
			"available_balance": w.AvailableBalance,
			"last_updated":      w.LastUpdated,
		}).Error
}

func (r *LedgerRepository) ListEntries(ctx context.Context, walletID string, filter ledger.EntryFilter) ([]*wallet.LedgerEntry, int64, error) {
	scoped := func() *gorm.DB {
		q := database.Conn(ctx, r.db).Model(&wallet.LedgerEntry{}).Where("wallet_id = ?", walletID)
		if filter.Type != "" {
			q = q.Where("type = ?", filter.Type)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*wallet.LedgerEntry, 0)
	err := scoped().Order("created_at DESC").Order("id DESC").
		Offset(filter.Offset()).Limit(filter.PageSize).
		Find(&entries).Error
	return entries, total, err
}

// PendingDeposits sums open payment intents priced in the wallet currency:
// confirming ones, and pending ones not yet expired.
func (r *LedgerRepository) PendingDeposits(ctx context.Context, userID, currency string, now time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := database.Conn(ctx, r.db).Model(&payment.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND currency = ?", userID, currency).
		Where("(status = ? OR (status = ? AND expires_at > ?))", payment.StatusConfirming, payment.StatusPending, now).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}
