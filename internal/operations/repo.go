package operations

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Find(ctx context.Context, property string) (*models.Operation, error) {
	var op models.Operation
	if err := r.db.WithContext(ctx).Where("property = ?", property).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Operation, error) {
	var ops []models.Operation
	if err := r.db.WithContext(ctx).Order("property ASC").Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// Upsert writes the value, replacing any existing one for the property.
func (r *Repository) Upsert(ctx context.Context, op *models.Operation) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "property"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(op).Error
}
