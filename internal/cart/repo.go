package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// Repository exposes cart and line item persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) FindOpenByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND locked = ?", ownerID, false).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindLockedSince returns the owner's most recently locked cart when it was
// locked at or after since.
func (r *Repository) FindLockedSince(ctx context.Context, ownerID uuid.UUID, since time.Time) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND locked = ? AND locked_at >= ?", ownerID, true, since).
		Order("locked_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.db.WithContext(ctx).Omit("Items").Create(cart).Error
}

// TouchUnlocked bumps updated_at on an unlocked cart. It reports false when
// the cart is locked, which serialises item writes against Lock.
func (r *Repository) TouchUnlocked(ctx context.Context, cartID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND locked = ?", cartID, false).
		Update("updated_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Lock flips locked from false to true and reports whether this call won.
func (r *Repository) Lock(ctx context.Context, cartID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("id = ? AND locked = ?", cartID, false).
		Updates(map[string]any{"locked": true, "locked_at": now, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) ListItems(ctx context.Context, cartID uuid.UUID) ([]models.CartLineItem, error) {
	var items []models.CartLineItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *Repository) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartLineItem, error) {
	var item models.CartLineItem
	if err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *Repository) FindItemByIdentity(ctx context.Context, cartID, productID uuid.UUID, variantKey string) (*models.CartLineItem, error) {
	var item models.CartLineItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ? AND variant_key = ?", cartID, productID, variantKey).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpsertItem inserts the line or, when (cart, product, variant) already
// exists, overwrites its quantity and price.
func (r *Repository) UpsertItem(ctx context.Context, item *models.CartLineItem) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "price", "updated_at"}),
		}).
		Create(item).Error
}

func (r *Repository) UpdateItem(ctx context.Context, itemID uuid.UUID, quantity, price int64) error {
	return r.db.WithContext(ctx).Model(&models.CartLineItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"quantity": quantity, "price": price}).Error
}

func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&models.CartLineItem{}).Error
}

// SyncItemPrice rewrites a stored line price, only while its cart is unlocked.
func (r *Repository) SyncItemPrice(ctx context.Context, itemID uuid.UUID, price int64) (bool, error) {
	unlocked := r.db.Model(&models.Cart{}).Select("id").Where("locked = ?", false)
	res := r.db.WithContext(ctx).Model(&models.CartLineItem{}).
		Where("id = ? AND cart_id IN (?)", itemID, unlocked).
		Update("price", price)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LoadProducts returns the referenced products with their variants, keyed by id.
func (r *Repository) LoadProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants").
		Where("id IN ?", ids).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for i := range products {
		result[products[i].ID] = &products[i]
	}
	return result, nil
}
