package addresses

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

func (r *Repository) Create(ctx context.Context, addr *models.Address) error {
	return r.db.WithContext(ctx).Create(addr).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Address, error) {
	var addr models.Address
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&addr).Error; err != nil {
		return nil, err
	}
	return &addr, nil
}

// ListForOwner returns the default address first, then newest first.
func (r *Repository) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("is_default DESC").
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *Repository) CountForOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Address{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// ClearDefault unsets the default flag on every address of the owner.
func (r *Repository) ClearDefault(ctx context.Context, ownerID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).
		Where("owner_id = ? AND is_default = ?", ownerID, true).
		Update("is_default", false).Error
}

func (r *Repository) MarkDefault(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Address{}).
		Where("id = ?", id).
		Update("is_default", true).Error
}
