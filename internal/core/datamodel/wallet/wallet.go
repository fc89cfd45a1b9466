package wallet

import (
	"time"

	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeDeposit    EntryType = "deposit"
	EntryTypeWithdrawal EntryType = "withdrawal"
	EntryTypeInvestment EntryType = "investment"
	EntryTypeReturn     EntryType = "return"
	EntryTypeFee        EntryType = "fee"
	EntryTypeRefund     EntryType = "refund"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeDeposit, EntryTypeWithdrawal, EntryTypeInvestment, EntryTypeReturn, EntryTypeFee, EntryTypeRefund:
		return true
	}
	return false
}

// IsCredit reports whether the entry increases the balance.
func (t EntryType) IsCredit() bool {
	return t == EntryTypeDeposit || t == EntryTypeReturn
}

// Signed returns amount with the sign this entry type applies to a balance.
func (t EntryType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t.IsCredit() {
		return amount
	}
	return amount.Neg()
}

type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "pending"
	EntryStatusCompleted EntryStatus = "completed"
	EntryStatusFailed    EntryStatus = "failed"
)

type WalletAccount struct {
	ID                 string          `gorm:"column:id;primaryKey;size:36" json:"id"`
	UserID             string          `gorm:"column:user_id;size:64;not null;uniqueIndex" json:"userId"`
	Currency           string          `gorm:"column:currency;size:10;not null" json:"currency"`
	Balance            decimal.Decimal `gorm:"column:balance;type:numeric(20,8);not null;default:0" json:"balance"`
	AvailableBalance   decimal.Decimal `gorm:"column:available_balance;type:numeric(20,8);not null;default:0" json:"availableBalance"`
	PendingDeposits    decimal.Decimal `gorm:"column:pending_deposits;type:numeric(20,8);not null;default:0" json:"pendingDeposits"`
	PendingWithdrawals decimal.Decimal `gorm:"column:pending_withdrawals;type:numeric(20,8);not null;default:0" json:"pendingWithdrawals"`
	LastUpdated        time.Time       `gorm:"column:last_updated" json:"lastUpdated"`
	CreatedAt          time.Time       `gorm:"column:created_at" json:"createdAt"`
}

func (WalletAccount) TableName() string {
	return "wallet_accounts"
}

// LedgerEntry amounts are stored as positive magnitudes; the type carries the sign.
type LedgerEntry struct {
	ID           string          `gorm:"column:id;primaryKey;size:36" json:"id"`
	WalletID     string          `gorm:"column:wallet_id;size:36;not null;uniqueIndex:idx_ledger_entries_wallet_ref_type,priority:1" json:"walletId"`
	Reference    string          `gorm:"column:reference;size:128;not null;uniqueIndex:idx_ledger_entries_wallet_ref_type,priority:2" json:"reference"`
	Type         EntryType       `gorm:"column:type;size:20;not null;uniqueIndex:idx_ledger_entries_wallet_ref_type,priority:3" json:"type"`
	Amount       decimal.Decimal `gorm:"column:amount;type:numeric(20,8);not null" json:"amount"`
	Status       EntryStatus     `gorm:"column:status;size:20;not null" json:"status"`
	BalanceAfter decimal.Decimal `gorm:"column:balance_after;type:numeric(20,8);not null" json:"balanceAfter"`
	Description  string          `gorm:"column:description;size:255" json:"description,omitempty"`
	CreatedAt    time.Time       `gorm:"column:created_at;index" json:"createdAt"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}
