package reconciliation

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrWalletNotFound = errors.New("wallet not found")

const (
	StatusBalanced         = "balanced"
	StatusDiscrepancyFound = "discrepancy_found"
)

// WalletSnapshot pairs the stored balance with the ledger sum, both read at
// the same point in time.
type WalletSnapshot struct {
	WalletID         string          `db:"id"`
	UserID           string          `db:"user_id"`
	Balance          decimal.Decimal `db:"balance"`
	ExpectedBalance  decimal.Decimal `db:"expected_balance"`
	TransactionCount int64           `db:"transaction_count"`
}

type RepositoryAPI interface {
	Snapshot(ctx context.Context, walletID string) (*WalletSnapshot, error)
	ListWalletIDs(ctx context.Context) ([]string, error)
}

type ServiceAPI interface {
	Reconcile(ctx context.Context, walletID string) (*Report, error)
	ReconcileAll(ctx context.Context, onlyDiscrepancies bool) (*Summary, error)
}

// Report is a diagnostic snapshot; it is never persisted.
type Report struct {
	WalletID         string          `json:"walletId"`
	UserID           string          `json:"userId"`
	ActualBalance    decimal.Decimal `json:"actualBalance"`
	ExpectedBalance  decimal.Decimal `json:"expectedBalance"`
	Discrepancy      decimal.Decimal `json:"discrepancy"`
	TransactionCount int64           `json:"transactionCount"`
	Timestamp        time.Time       `json:"timestamp"`
	Status           string          `json:"status"`
}

func (r *Report) Balanced() bool {
	return r.Status == StatusBalanced
}

type Summary struct {
	Reports          []*Report `json:"reports"`
	WalletsChecked   int       `json:"walletsChecked"`
	DiscrepancyCount int       `json:"discrepancyCount"`
	Timestamp        time.Time `json:"timestamp"`
}
