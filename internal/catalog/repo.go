package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ErrStockContention is returned when a stock compare-and-swap keeps losing.
var ErrStockContention = errors.New("stock update contention")

const stockCASAttempts = 5

// Repository exposes catalog persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided DB handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit("Variants").Create(product).Error
}

// editableProductColumns are the only columns an admin edit may write. Stock
// counters and variant flags are owned by their own column-scoped updates.
var editableProductColumns = map[string]struct{}{
	"name":        {},
	"price":       {},
	"description": {},
	"brand":       {},
	"images":      {},
	"status":      {},
	"low_alert":   {},
}

// UpdateProductFields writes only the provided editable columns.
func (r *Repository) UpdateProductFields(ctx context.Context, productID uuid.UUID, fields map[string]any) error {
	updates := make(map[string]any, len(fields))
	for column, value := range fields {
		if _, ok := editableProductColumns[column]; !ok {
			return fmt.Errorf("column %q is not editable", column)
		}
		updates[column] = value
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repository) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("slug = ?", slug).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

type productListQuery struct {
	Offset int
	Limit  int
	Status *enums.ProductStatus
}

func (r *Repository) ListProducts(ctx context.Context, query productListQuery) ([]models.Product, int64, error) {
	filtered := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Product{})
		if query.Status != nil {
			q = q.Where("status = ?", *query.Status)
		}
		return q
	}
	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	err := filtered().
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Order("created_at DESC").
		Order("id ASC").
		Offset(query.Offset).
		Limit(query.Limit).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) CreateVariant(ctx context.Context, variant *models.ProductVariant) error {
	return r.db.WithContext(ctx).Create(variant).Error
}

// FindVariant loads a variant scoped to its parent product.
func (r *Repository) FindVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	var variant models.ProductVariant
	err := r.db.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&variant).Error
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *Repository) MarkHasVariants(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("has_variants", true).Error
}

// ListAllProducts returns every product with variants for stock audits.
func (r *Repository) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

type stockRow struct {
	Stock            int64
	LowAlert         int64
	LowStockNotified bool
}

func (r *Repository) loadStock(ctx context.Context, target StockTarget) (stockRow, error) {
	var row stockRow
	query := r.db.WithContext(ctx).Select("stock", "low_alert", "low_stock_notified")
	var err error
	if target.VariantID != nil {
		err = query.Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *target.VariantID, target.ProductID).
			Take(&row).Error
	} else {
		err = query.Model(&models.Product{}).
			Where("id = ?", target.ProductID).
			Take(&row).Error
	}
	return row, err
}

func (r *Repository) targetModel(target StockTarget) *gorm.DB {
	if target.VariantID != nil {
		return r.db.Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ?", *target.VariantID, target.ProductID)
	}
	return r.db.Model(&models.Product{}).Where("id = ?", target.ProductID)
}

// AdjustStock applies stock = max(stock + delta, 0) with a compare-and-swap on
// the previous value and reports the before/after counters.
func (r *Repository) AdjustStock(ctx context.Context, target StockTarget, delta int64) (StockChange, error) {
	for attempt := 0; attempt < stockCASAttempts; attempt++ {
		current, err := r.loadStock(ctx, target)
		if err != nil {
			return StockChange{}, err
		}
		next := current.Stock + delta
		if next < 0 {
			next = 0
		}
		res := r.targetModel(target).WithContext(ctx).
			Where("stock = ?", current.Stock).
			Update("stock", next)
		if res.Error != nil {
			return StockChange{}, res.Error
		}
		if res.RowsAffected == 1 {
			return StockChange{
				Target:           target,
				Previous:         current.Stock,
				Current:          next,
				LowAlert:         current.LowAlert,
				LowStockNotified: current.LowStockNotified,
			}, nil
		}
	}
	return StockChange{}, ErrStockContention
}

// SetStock overwrites the cached counter.
func (r *Repository) SetStock(ctx context.Context, target StockTarget, stock int64) error {
	return r.targetModel(target).WithContext(ctx).Update("stock", stock).Error
}

// SetLowStockNotified flips the low-stock flag only when it currently holds
// the opposite value and reports whether this call changed it.
func (r *Repository) SetLowStockNotified(ctx context.Context, target StockTarget, notified bool) (bool, error) {
	res := r.targetModel(target).WithContext(ctx).
		Where("low_stock_notified = ?", !notified).
		Update("low_stock_notified", notified)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
