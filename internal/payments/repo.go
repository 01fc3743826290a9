package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, payment *models.ExternalPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Exists reports whether (orderID, reference) was already reconciled.
func (r *Repository) Exists(ctx context.Context, orderID uuid.UUID, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ExternalPayment{}).
		Where("order_id = ? AND reference = ?", orderID, reference).
		Count(&count).Error
	return count > 0, err
}
