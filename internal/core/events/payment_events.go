package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventTypePaymentConfirmed = "payment.confirmed"
	EventTypeRefundIssued     = "refund.issued"
)

type PaymentConfirmedEvent struct {
	BaseEvent
	PaymentID string          `json:"payment_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    string          `json:"status"`
	EntryID   string          `json:"entry_id"`
}

func NewPaymentConfirmedEvent(paymentID, userID string, amount decimal.Decimal, currency, status, entryID string) *PaymentConfirmedEvent {
	return &PaymentConfirmedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypePaymentConfirmed,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"user_id":    userID,
				"amount":     amount.String(),
				"currency":   currency,
				"status":     status,
				"entry_id":   entryID,
			},
		},
		PaymentID: paymentID,
		UserID:    userID,
		Amount:    amount,
		Currency:  currency,
		Status:    status,
		EntryID:   entryID,
	}
}

type RefundIssuedEvent struct {
	BaseEvent
	PaymentID string          `json:"payment_id"`
	UserID    string          `json:"user_id"`
	AdminID   string          `json:"admin_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Reason    string          `json:"reason"`
}

func NewRefundIssuedEvent(paymentID, userID, adminID string, amount decimal.Decimal, currency, reason string) *RefundIssuedEvent {
	return &RefundIssuedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.NewString(),
			Type:      EventTypeRefundIssued,
			Timestamp: time.Now().UTC(),
			Data: map[string]interface{}{
				"payment_id": paymentID,
				"user_id":    userID,
				"admin_id":   adminID,
				"amount":     amount.String(),
				"currency":   currency,
				"reason":     reason,
			},
		},
		PaymentID: paymentID,
		UserID:    userID,
		AdminID:   adminID,
		Amount:    amount,
		Currency:  currency,
		Reason:    reason,
	}
}
