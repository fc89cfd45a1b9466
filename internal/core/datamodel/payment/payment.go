package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirming Status = "confirming"
	StatusPaid       Status = "paid"
	StatusConfirmed  Status = "confirmed"
	StatusInvalid    Status = "invalid"
	StatusExpired    Status = "expired"
	StatusCanceled   Status = "canceled"
	StatusFailed     Status = "failed"
	StatusRefunded   Status = "refunded"
)

var AllStatuses = []Status{
	StatusPending, StatusConfirming, StatusPaid, StatusConfirmed,
	StatusInvalid, StatusExpired, StatusCanceled, StatusFailed, StatusRefunded,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further provider-driven transition may occur.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPaid, StatusConfirmed, StatusInvalid, StatusExpired, StatusCanceled, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// IsCreditable reports whether entering s credits the wallet.
func (s Status) IsCreditable() bool {
	return s == StatusPaid || s == StatusConfirmed
}

type PaymentTransaction struct {
	ID              string          `gorm:"column:id;primaryKey;size:36"`
	UserID          string          `gorm:"column:user_id;size:64;not null;index"`
	PropertyID      *string         `gorm:"column:property_id;size:64"`
	Amount          decimal.Decimal `gorm:"column:amount;type:numeric(20,8);not null"`
	Currency        string          `gorm:"column:currency;size:10;not null"`
	Status          Status          `gorm:"column:status;size:20;not null;index"`
	OrderID         string          `gorm:"column:order_id;size:32;not null;uniqueIndex"`
	ProviderOrderID *string         `gorm:"column:provider_order_id;size:64"`
	PaymentURL      string          `gorm:"column:payment_url;size:512"`
	WalletAddress   string          `gorm:"column:wallet_address;size:128"`
	TxHash          *string         `gorm:"column:tx_hash;size:128"`
	ExpiresAt       time.Time       `gorm:"column:expires_at;not null;index"`
	CreatedAt       time.Time       `gorm:"column:created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at"`
}

func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// EffectiveStatus applies lazy expiry: a pending transaction past its
// expiry is reported as expired without being written.
func (p *PaymentTransaction) EffectiveStatus(now time.Time) Status {
	if p.Status == StatusPending && !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt) {
		return StatusExpired
	}
	return p.Status
}
