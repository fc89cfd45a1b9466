package ledger

import (
	"github.com/shopspring/decimal"

	errors "github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
)

// WithdrawalRequest is the body of POST /wallets/{userId}/withdrawals. Reference
// is the caller's idempotency key.
type WithdrawalRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
}

func (r *WithdrawalRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("amount", r.Amount).Required().PositiveDecimal(errors.ErrCodeInvalidAmount)
	v.Field("reference", r.Reference).Required().MaxLength(128)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type WalletResponse struct {
	Wallet *wallet.WalletAccount `json:"wallet"`
}

type MutationResponse struct {
	Entry   *wallet.LedgerEntry   `json:"entry"`
	Wallet  *wallet.WalletAccount `json:"wallet"`
	Applied bool                  `json:"applied"`
}
