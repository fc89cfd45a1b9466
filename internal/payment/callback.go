package payment

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	errors "github.com/oneroskilfu/ireva-app-sub001/internal"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/common/validation"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	gatewaytypes "github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/paymentgateway"
)

// ProviderEvent is a validated provider callback.
type ProviderEvent struct {
	ProviderID      string
	OrderID         string
	Status          payment.Status
	ProviderStatus  string
	Amount          decimal.Decimal
	Currency        string
	ReceiveCurrency string
	ReceiveAmount   decimal.Decimal
	TxHash          string
}

var providerStatuses = map[string]payment.Status{
	gatewaytypes.StatusNew:        payment.StatusPending,
	gatewaytypes.StatusPending:    payment.StatusPending,
	gatewaytypes.StatusConfirming: payment.StatusConfirming,
	gatewaytypes.StatusPaid:       payment.StatusPaid,
	gatewaytypes.StatusConfirmed:  payment.StatusConfirmed,
	gatewaytypes.StatusInvalid:    payment.StatusInvalid,
	gatewaytypes.StatusExpired:    payment.StatusExpired,
	gatewaytypes.StatusCanceled:   payment.StatusCanceled,
	gatewaytypes.StatusFailed:     payment.StatusFailed,
	gatewaytypes.StatusRefunded:   payment.StatusRefunded,
}

// MapProviderStatus returns false for statuses the provider is not known to send.
func MapProviderStatus(s string) (payment.Status, bool) {
	status, ok := providerStatuses[strings.ToLower(strings.TrimSpace(s))]
	return status, ok
}

// ParseCallback decodes and validates a raw callback body. It must only be
// called after the signature over the same bytes has been verified.
func ParseCallback(body []byte) (*ProviderEvent, error) {
	var payload gatewaytypes.CallbackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.NewValidationError("callback body is not valid JSON", errors.ErrCodeInvalidPayload).WithCause(err)
	}

	v := validation.NewValidator()
	v.Field("id", payload.ID.String()).Required()
	v.Field("order_id", payload.OrderID).Required()
	v.Field("status", payload.Status).Required()
	v.Field("price_amount", payload.PriceAmount.String()).Required().PositiveDecimal(errors.ErrCodeInvalidAmount)
	v.Field("price_currency", payload.PriceCurrency).Required()
	if payload.ReceiveAmount != "" {
		v.Field("receive_amount", payload.ReceiveAmount.String()).PositiveDecimal(errors.ErrCodeInvalidAmount)
	}
	if appErr := v.Validate(); appErr != nil {
		return nil, appErr
	}

	status, ok := MapProviderStatus(payload.Status)
	if !ok {
		return nil, errors.NewValidationFieldError("status", "unsupported status "+payload.Status, errors.ErrCodeUnsupportedStatus)
	}

	amount, _ := decimal.NewFromString(strings.TrimSpace(payload.PriceAmount.String()))
	var received decimal.Decimal
	if payload.ReceiveAmount != "" {
		received, _ = decimal.NewFromString(strings.TrimSpace(payload.ReceiveAmount.String()))
	}

	return &ProviderEvent{
		ProviderID:      payload.ID.String(),
		OrderID:         payload.OrderID,
		Status:          status,
		ProviderStatus:  payload.Status,
		Amount:          amount,
		Currency:        strings.ToUpper(payload.PriceCurrency),
		ReceiveCurrency: strings.ToUpper(strings.TrimSpace(payload.ReceiveCurrency)),
		ReceiveAmount:   received,
		TxHash:          payload.TxHash,
	}, nil
}
