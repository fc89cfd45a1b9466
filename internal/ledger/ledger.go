package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrWalletNotFound    = errors.New("wallet not found")
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type RepositoryAPI interface {
	// EnsureWallet creates the user's wallet if it does not exist yet.
	EnsureWallet(ctx context.Context, userID, currency string) error
	GetWalletForUpdate(ctx context.Context, userID string) (*wallet.WalletAccount, error)
	GetWalletByUserID(ctx context.Context, userID string) (*wallet.WalletAccount, error)
	// FindEntry returns nil, nil when no entry exists for the key.
	FindEntry(ctx context.Context, walletID, reference string, entryType wallet.EntryType) (*wallet.LedgerEntry, error)
	// InsertEntry reports false when (wallet, reference, type) is already taken.
	InsertEntry(ctx context.Context, entry *wallet.LedgerEntry) (bool, error)
	UpdateBalances(ctx context.Context, w *wallet.WalletAccount) error
	ListEntries(ctx context.Context, walletID string, filter EntryFilter) ([]*wallet.LedgerEntry, int64, error)
	PendingDeposits(ctx context.Context, userID, currency string, now time.Time) (decimal.Decimal, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ServiceAPI interface {
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*Result, error)
	DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string, entryType wallet.EntryType) (*Result, error)
	GetBalance(ctx context.Context, userID string) (*wallet.WalletAccount, error)
	FindEntry(ctx context.Context, userID, reference string, entryType wallet.EntryType) (*wallet.LedgerEntry, error)
	ListEntries(ctx context.Context, userID string, filter EntryFilter) (*EntryPage, error)
}

// Result describes the effect of a ledger mutation. Applied is false when
// the reference had already been recorded and nothing changed.
type Result struct {
	Entry   *wallet.LedgerEntry
	Wallet  *wallet.WalletAccount
	Applied bool
}

type EntryFilter struct {
	Type     wallet.EntryType
	Status   wallet.EntryStatus
	Page     int
	PageSize int
}

func (f *EntryFilter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
}

func (f EntryFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type EntryPage struct {
	Entries  []*wallet.LedgerEntry `json:"entries"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"pageSize"`
	Total    int64                 `json:"total"`
}
