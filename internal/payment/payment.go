package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	gatewaytypes "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/paymentgateway"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/webhook"
	"github.com/oneroskilfu/ireva-app-sub001/internal/ledger"
)

var ErrPaymentNotFound = errors.New("payment not found")

// Outcomes of applying a provider event.
const (
	OutcomeApplied   = "applied"
	OutcomeDuplicate = "duplicate"
	OutcomeUnchanged = "unchanged"
	OutcomeAnomaly   = "anomaly"
)

type RepositoryAPI interface {
	Create(ctx context.Context, p *payment.PaymentTransaction) error
	GetByID(ctx context.Context, id string) (*payment.PaymentTransaction, error)
	GetByIDForUpdate(ctx context.Context, id string) (*payment.PaymentTransaction, error)
	GetByOrderIDForUpdate(ctx context.Context, orderID string) (*payment.PaymentTransaction, error)
	Save(ctx context.Context, p *payment.PaymentTransaction) error
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*payment.PaymentTransaction, error)
}

// WebhookEventRepositoryAPI stores verified provider deliveries.
type WebhookEventRepositoryAPI interface {
	Create(ctx context.Context, e *webhook.Event) error
	Complete(ctx context.Context, e *webhook.Event) error
}

// Provider obtains a payment address/URL from the payment provider. Live and
// sandbox implementations are selected once at startup.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, req *gatewaytypes.OrderRequest) (*gatewaytypes.Order, error)
}

type LedgerCrediter interface {
	CreditWallet(ctx context.Context, userID string, amount decimal.Decimal, reference string) (*ledger.Result, error)
}

type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type ServiceAPI interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*IntentResult, error)
	GetPayment(ctx context.Context, id string, principal internal.Principal) (*payment.PaymentTransaction, error)
	ApplyProviderEvent(ctx context.Context, event *ProviderEvent) (*ApplyResult, error)
	ExpireStale(ctx context.Context, limit int) (int, error)
}

type CreateIntentInput struct {
	UserID     string
	Amount     decimal.Decimal
	Currency   string
	PropertyID *string
}

type IntentResult struct {
	Payment        *payment.PaymentTransaction
	PaymentURL     string
	PaymentAddress string
}

type ApplyResult struct {
	Outcome  string
	Payment  *payment.PaymentTransaction
	Previous payment.Status
	Credited bool
	Reason   string
}
