package webhook

import "time"

const (
	OutcomeReceived = "received"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Event is the inbox row kept for every signature-verified provider delivery.
type Event struct {
	ID              string     `gorm:"column:id;primaryKey;size:36"`
	ProviderEventID string     `gorm:"column:provider_event_id;size:64;index"`
	OrderID         string     `gorm:"column:order_id;size:64;index"`
	Status          string     `gorm:"column:status;size:32"`
	Payload         string     `gorm:"column:payload;type:text;not null"`
	SignatureValid  bool       `gorm:"column:signature_valid;not null"`
	Outcome         string     `gorm:"column:outcome;size:32;not null;index"`
	ProcessingError *string    `gorm:"column:processing_error;type:text"`
	RemoteAddr      string     `gorm:"column:remote_addr;size:64"`
	ReceivedAt      time.Time  `gorm:"column:received_at;not null"`
	ProcessedAt     *time.Time `gorm:"column:processed_at"`
}

func (Event) TableName() string {
	return "webhook_events"
}
