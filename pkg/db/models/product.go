package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Product is the canonical catalog item. Stock is a cached counter; the
// inventory ledger is authoritative.
type Product struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	Name             string                 `gorm:"column:name;not null"`
	Slug             string                 `gorm:"column:slug;not null;uniqueIndex:ux_products_slug"`
	Brand            *string                `gorm:"column:brand"`
	Description      *string                `gorm:"column:description"`
	Images           dbtypes.JSON[[]string] `gorm:"column:images;type:jsonb;not null"`
	Price            int64                  `gorm:"column:price;not null"`
	Stock            int64                  `gorm:"column:stock;not null;default:0"`
	LowAlert         int64                  `gorm:"column:low_alert;not null;default:0"`
	LowStockNotified bool                   `gorm:"column:low_stock_notified;not null;default:false"`
	HasVariants      bool                   `gorm:"column:has_variants;not null;default:false"`
	Status           enums.ProductStatus    `gorm:"column:status;type:text;not null;default:'active'"`
	Variants         []ProductVariant       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductVariant carries its own price and stock when the parent has variants.
// A nil Price inherits the parent product price.
type ProductVariant struct {
	ID               uuid.UUID                       `gorm:"column:id;type:uuid;primaryKey"`
	ProductID        uuid.UUID                       `gorm:"column:product_id;type:uuid;not null;index:idx_product_variants_product"`
	SKU              string                          `gorm:"column:sku;not null;uniqueIndex:ux_product_variants_sku"`
	Attributes       dbtypes.JSON[map[string]string] `gorm:"column:attributes;type:jsonb;not null"`
	Price            *int64                          `gorm:"column:price"`
	Stock            int64                           `gorm:"column:stock;not null;default:0"`
	LowAlert         int64                           `gorm:"column:low_alert;not null;default:0"`
	LowStockNotified bool                            `gorm:"column:low_stock_notified;not null;default:false"`
	Active           bool                            `gorm:"column:active;not null"`
	Images           dbtypes.JSON[[]string]          `gorm:"column:images;type:jsonb;not null"`
	CreatedAt        time.Time                       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                       `gorm:"column:updated_at;autoUpdateTime"`
}

func (v *ProductVariant) BeforeCreate(*gorm.DB) error {
	ensureID(&v.ID)
	return nil
}

// Title joins the attribute option values in attribute-name order, e.g. "Large / Red".
func (v ProductVariant) Title() string {
	if len(v.Attributes.Data) == 0 {
		return v.SKU
	}
	names := make([]string, 0, len(v.Attributes.Data))
	for name := range v.Attributes.Data {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]string, 0, len(names))
	for _, name := range names {
		values = append(values, v.Attributes.Data[name])
	}
	return strings.Join(values, " / ")
}
