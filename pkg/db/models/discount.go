package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Discount is a percentage-off code with a redemption cap and expiry.
type Discount struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name       string          `gorm:"column:name;not null"`
	Code       string          `gorm:"column:code;not null;uniqueIndex:ux_discounts_code"`
	Percentage decimal.Decimal `gorm:"column:percentage;type:numeric(5,2);not null"`
	UsageLimit int64           `gorm:"column:usage_limit;not null"`
	Uses       int64           `gorm:"column:uses;not null;default:0"`
	Validity   time.Time       `gorm:"column:validity;not null"`
	PriceLimit int64           `gorm:"column:price_limit;not null;default:0"`
	IsVisible  bool            `gorm:"column:is_visible;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Discount) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
