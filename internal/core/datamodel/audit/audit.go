package audit

import "time"

const (
	ActionRefund = "payment.refund"

	OutcomeSucceeded = "succeeded"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// AdminAuditEntry is append-only; rows are never updated.
type AdminAuditEntry struct {
	ID         string    `gorm:"column:id;primaryKey;size:36" json:"id"`
	AdminID    string    `gorm:"column:admin_id;size:64;not null;index" json:"adminId"`
	Action     string    `gorm:"column:action;size:64;not null" json:"action"`
	TargetType string    `gorm:"column:target_type;size:64;not null" json:"targetType"`
	TargetID   string    `gorm:"column:target_id;size:64;not null;index" json:"targetId"`
	Reason     string    `gorm:"column:reason;type:text" json:"reason"`
	Outcome    string    `gorm:"column:outcome;size:32;not null" json:"outcome"`
	Detail     string    `gorm:"column:detail;type:text" json:"detail,omitempty"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (AdminAuditEntry) TableName() string {
	return "admin_audit_entries"
}
