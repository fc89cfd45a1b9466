package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/database"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	paymentpkg "github.com/oneroskilfu/ireva-app-sub001/internal/payment"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.PaymentTransaction) error {
	return database.Conn(ctx, r.db).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*payment.PaymentTransaction, error) {
	return r.first(database.Conn(ctx, r.db).Where("id = ?", id))
}

func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, id string) (*payment.PaymentTransaction, error) {
	return r.first(database.ForUpdate(database.Conn(ctx, r.db)).Where("id = ?", id))
}

func (r *PaymentRepository) GetByOrderIDForUpdate(ctx context.Context, orderID string) (*payment.PaymentTransaction, error) {
	return r.first(database.ForUpdate(database.Conn(ctx, r.db)).Where("order_id = ?", orderID))
}

func (r *PaymentRepository) first(q *gorm.DB) (*payment.PaymentTransaction, error) {
	var p payment.PaymentTransaction
	if err := q.First(&p).Error; err != nil {
		if database.IsNotFound(err) {
			return nil, paymentpkg.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Save writes the mutable columns only; amount and currency never change.
func (r *PaymentRepository) Save(ctx context.Context, p *payment.PaymentTransaction) error {
	return database.Conn(ctx, r.db).Model(&payment.PaymentTransaction{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"status":            p.Status,
			"provider_order_id": p.ProviderOrderID,
			"tx_hash":           p.TxHash,
			"updated_at":        p.UpdatedAt,
		}).Error
}

func (r *PaymentRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*payment.PaymentTransaction, error) {
	if limit <= 0 {
		limit = 100
	}
	payments := make([]*payment.PaymentTransaction, 0)
	err := database.Conn(ctx, r.db).
		Where("status = ? AND expires_at <= ?", payment.StatusPending, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&payments).Error
	return payments, err
}
