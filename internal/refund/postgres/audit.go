package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/audit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/refund"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) refund.AuditRepositoryAPI {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, entry *audit.AdminAuditEntry) error {
	return database.Conn(ctx, r.db).Create(entry).Error
}
