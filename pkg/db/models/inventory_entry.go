package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// InventoryEntry is an append-only stock movement. Quantity is always
// positive; Action carries the sign. Inactive entries have been reversed.
type InventoryEntry struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	ProductID   uuid.UUID             `gorm:"column:product_id;type:uuid;not null;index:idx_inventory_entries_product"`
	VariantID   *uuid.UUID            `gorm:"column:variant_id;type:uuid;index:idx_inventory_entries_variant"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid;index:idx_inventory_entries_order"`
	Action      enums.InventoryAction `gorm:"column:action;type:text;not null"`
	Quantity    int64                 `gorm:"column:quantity;not null"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null"`
	Description string                `gorm:"column:description;not null;default:''"`
	Active      bool                  `gorm:"column:active;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *InventoryEntry) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// SignedQuantity returns the entry's contribution to stock.
func (e InventoryEntry) SignedQuantity() int64 {
	return e.Action.Sign() * e.Quantity
}
