package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the mutable pre-checkout basket. At most one unlocked cart exists
// per owner, enforced by the partial unique index ux_carts_open_owner.
type Cart struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	OwnerID   uuid.UUID      `gorm:"column:owner_id;type:uuid;not null;uniqueIndex:ux_carts_open_owner,where:locked = false"`
	Locked    bool           `gorm:"column:locked;not null;default:false"`
	LockedAt  *time.Time     `gorm:"column:locked_at"`
	Items     []CartLineItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CartLineItem is unique per (cart, product, variant). VariantKey holds the
// variant id as text, or empty for simple products, so the unique index
// treats "no variant" as a single value.
type CartLineItem struct {
	ID         uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CartID     uuid.UUID  `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_cart_line_items_identity,priority:1"`
	ProductID  uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_cart_line_items_identity,priority:2"`
	VariantID  *uuid.UUID `gorm:"column:variant_id;type:uuid"`
	VariantKey string     `gorm:"column:variant_key;not null;default:'';uniqueIndex:ux_cart_line_items_identity,priority:3"`
	Quantity   int64      `gorm:"column:quantity;not null"`
	Price      int64      `gorm:"column:price;not null"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *CartLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// VariantKeyFor renders the variant identity used in the line-item unique index.
func VariantKeyFor(variantID *uuid.UUID) string {
	if variantID == nil || *variantID == uuid.Nil {
		return ""
	}
	return variantID.String()
}
