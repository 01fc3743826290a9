package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists ledger entries.
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

func (r *Repository) Create(ctx context.Context, entry *models.InventoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryEntry, error) {
	var entry models.InventoryEntry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Deactivate marks an active entry reversed. It reports false when the entry
// was already inactive.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.InventoryEntry{}).
		Where("id = ? AND active = ?", id, true).
		Update("active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

const signedSumExpr = "COALESCE(SUM(CASE WHEN action = ? THEN -quantity ELSE quantity END), 0)"

// SumActive returns the signed ledger total for one stock counter. A nil
// variant selects the product's own counter.
func (r *Repository) SumActive(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.InventoryEntry{}).
		Where("product_id = ? AND active = ?", productID, true)
	if variantID == nil {
		q = q.Where("variant_id IS NULL")
	} else {
		q = q.Where("variant_id = ?", *variantID)
	}
	var total int64
	err := q.Select(signedSumExpr, enums.InventoryStockOut).Scan(&total).Error
	return total, err
}

// SumActiveForProduct totals every active entry of a product, variants included.
func (r *Repository) SumActiveForProduct(ctx context.Context, productID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.InventoryEntry{}).
		Where("product_id = ? AND active = ?", productID, true).
		Select(signedSumExpr, enums.InventoryStockOut).
		Scan(&total).Error
	return total, err
}

func (r *Repository) ListActiveByProduct(ctx context.Context, productID uuid.UUID, offset, limit int) ([]models.InventoryEntry, int64, error) {
	filtered := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.InventoryEntry{}).
			Where("product_id = ? AND active = ?", productID, true)
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.InventoryEntry
	err := filtered().
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

// StockFilter narrows the overview to low or healthy stock.
type StockFilter string

const (
	StockFilterAll     StockFilter = "all"
	StockFilterLow     StockFilter = "low"
	StockFilterStocked StockFilter = "stocked"
)

func (f StockFilter) IsValid() bool {
	return f == StockFilterAll || f == StockFilterLow || f == StockFilterStocked
}

func (r *Repository) productsByStock(ctx context.Context, filter StockFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	switch filter {
	case StockFilterLow:
		q = q.Where("stock <= low_alert")
	case StockFilterStocked:
		q = q.Where("stock > low_alert")
	}
	return q
}

func (r *Repository) ListProductsByStock(ctx context.Context, filter StockFilter, offset, limit int) ([]models.Product, int64, error) {
	var total int64
	if err := r.productsByStock(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	err := r.productsByStock(ctx, filter).
		Order("stock ASC").
		Order("name ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) CountProductsByStock(ctx context.Context, filter StockFilter) (int64, error) {
	var total int64
	err := r.productsByStock(ctx, filter).Count(&total).Error
	return total, err
}

// TargetLabel names a stock counter for alerts: the product name, plus the
// variant SKU when one is addressed.
func (r *Repository) TargetLabel(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (string, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Select("id", "name").Where("id = ?", productID).Take(&product).Error; err != nil {
		return "", err
	}
	if variantID == nil {
		return product.Name, nil
	}
	var variant models.ProductVariant
	if err := r.db.WithContext(ctx).Select("id", "sku").Where("id = ?", *variantID).Take(&variant).Error; err != nil {
		return "", err
	}
	return product.Name + " (" + variant.SKU + ")", nil
}
