package paymentgateway

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Statuses as reported by the provider on callbacks.
const (
	StatusNew        = "new"
	StatusPending    = "pending"
	StatusConfirming = "confirming"
	StatusPaid       = "paid"
	StatusConfirmed  = "confirmed"
	StatusInvalid    = "invalid"
	StatusExpired    = "expired"
	StatusCanceled   = "canceled"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// FlexString decodes either a JSON string or a JSON number into text.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("expected a string or number")
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

type OrderRequest struct {
	OrderID         string          `json:"order_id"`
	PriceAmount     decimal.Decimal `json:"price_amount"`
	PriceCurrency   string          `json:"price_currency"`
	ReceiveCurrency string          `json:"receive_currency,omitempty"`
	Title           string          `json:"title,omitempty"`
	Description     string          `json:"description,omitempty"`
	CallbackURL     string          `json:"callback_url,omitempty"`
}

func (r *OrderRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order_id is required")
	}
	if !r.PriceAmount.IsPositive() {
		return errors.New("price_amount must be greater than 0")
	}
	if r.PriceCurrency == "" {
		return errors.New("price_currency is required")
	}
	return nil
}

// Order is the provider's answer to an order creation request.
type Order struct {
	ID             FlexString `json:"id"`
	Status         string     `json:"status"`
	PaymentURL     string     `json:"payment_url"`
	PaymentAddress string     `json:"payment_address"`
	ExpireAt       *time.Time `json:"expire_at,omitempty"`
}

// CallbackPayload is the body the provider posts to the webhook endpoint.
type CallbackPayload struct {
	ID              FlexString `json:"id"`
	OrderID         string     `json:"order_id"`
	Status          string     `json:"status"`
	PriceAmount     FlexString `json:"price_amount"`
	PriceCurrency   string     `json:"price_currency"`
	ReceiveCurrency string     `json:"receive_currency,omitempty"`
	ReceiveAmount   FlexString `json:"receive_amount,omitempty"`
	TxHash          string     `json:"tx_hash,omitempty"`
}
