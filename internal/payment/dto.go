package payment

import (
	"time"

	"github.com/shopspring/decimal"

	errors "github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
)

// CreatePaymentRequest is the body of POST /payments. UserID defaults to the caller.
type CreatePaymentRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	UserID     string          `json:"userId,omitempty"`
	PropertyID *string         `json:"propertyId,omitempty"`
}

func (r *CreatePaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveDecimal(errors.ErrCodeInvalidAmount)
	validator.Field("currency", r.Currency).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type CreatePaymentResponse struct {
	TransactionID  string    `json:"transactionId"`
	Status         string    `json:"status"`
	PaymentURL     string    `json:"paymentUrl"`
	PaymentAddress string    `json:"paymentAddress"`
	ExpiresAt      time.Time `json:"expiresAt"`
}

type PaymentResponse struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	PropertyID    *string         `json:"propertyId,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	OrderID       string          `json:"orderId"`
	PaymentURL    string          `json:"paymentUrl"`
	WalletAddress string          `json:"walletAddress"`
	TxHash        *string         `json:"txHash,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	ExpiresAt     time.Time       `json:"expiresAt"`
}

func ToPaymentResponse(p *payment.PaymentTransaction) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		PropertyID:    p.PropertyID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		OrderID:       p.OrderID,
		PaymentURL:    p.PaymentURL,
		WalletAddress: p.WalletAddress,
		TxHash:        p.TxHash,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		ExpiresAt:     p.ExpiresAt,
	}
}

// WebhookResponse is returned to the provider for every signed delivery.
type WebhookResponse struct {
	Status  string `json:"status"`
	Outcome string `json:"outcome,omitempty"`
	Message string `json:"message,omitempty"`
}
