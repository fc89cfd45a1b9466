package refund

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/audit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
)

type PaymentRepository interface {
	GetByIDForUpdate(ctx context.Context, id string) (*payment.PaymentTransaction, error)
	Save(ctx context.Context, p *payment.PaymentTransaction) error
}

type AuditRepositoryAPI interface {
	Create(ctx context.Context, entry *audit.AdminAuditEntry) error
}

type LedgerAPI interface {
	DebitWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string, entryType wallet.EntryType) (*ledger.Result, error)
	FindEntry(ctx context.Context, userID, reference string, entryType wallet.EntryType) (*wallet.LedgerEntry, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ServiceAPI interface {
	RequestRefund(ctx context.Context, paymentID, reason, adminID string) (*Result, error)
}

type Result struct {
	PaymentID     string          `json:"paymentId"`
	Status        payment.Status  `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	EntryID       string          `json:"entryId"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	RefundedAt    time.Time       `json:"refundedAt"`
}
