package discounts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository persists discount codes.
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

func (r *Repository) Create(ctx context.Context, discount *models.Discount) error {
	return r.db.WithContext(ctx).Create(discount).Error
}

// UpdateFields applies updates to a visible discount. When a new usage limit
// is part of the update it only applies if uses has not passed it.
func (r *Repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Discount{}).
		Where("id = ? AND is_visible = ?", id, true)
	if limit, ok := updates["usage_limit"]; ok {
		query = query.Where("uses <= ?", limit)
	}
	res := query.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) FindVisibleByID(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_visible = ?", id, true).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *Repository) FindVisibleByCode(ctx context.Context, code string) (*models.Discount, error) {
	var discount models.Discount
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_visible = ?", code, true).
		First(&discount).Error
	if err != nil {
		return nil, err
	}
	return &discount, nil
}

func (r *Repository) ListVisible(ctx context.Context, offset, limit int) ([]models.Discount, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Discount{}).
		Where("is_visible = ?", true).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Discount
	err := r.db.WithContext(ctx).
		Where("is_visible = ?", true).
		Order("created_at DESC").
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

// Hide soft-deletes the provided discounts.
func (r *Repository) Hide(ctx context.Context, ids []uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Discount{}).
		Where("id IN ? AND is_visible = ?", ids, true).
		Update("is_visible", false)
	return res.RowsAffected, res.Error
}

// IncrementUses claims one redemption if the discount is still visible,
// unexpired, and under its limit at now.
func (r *Repository) IncrementUses(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Discount{}).
		Where("id = ? AND is_visible = ? AND uses < usage_limit AND validity > ?", id, true, now).
		UpdateColumn("uses", gorm.Expr("uses + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindByIDAny loads a discount regardless of visibility.
func (r *Repository) FindByIDAny(ctx context.Context, id uuid.UUID) (*models.Discount, error) {
	var discount models.Discount
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&discount).Error; err != nil {
		return nil, err
	}
	return &discount, nil
}
