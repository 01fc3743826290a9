package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ExternalPayment is one reconciled provider callback, unique per (order, reference).
type ExternalPayment struct {
	ID        uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID                     `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_external_payments_order_reference,priority:1"`
	Reference string                        `gorm:"column:reference;not null;uniqueIndex:ux_external_payments_order_reference,priority:2"`
	Provider  enums.PaymentProvider         `gorm:"column:provider;type:text;not null"`
	Status    string                        `gorm:"column:status;not null"`
	Success   bool                          `gorm:"column:success;not null"`
	Amount    int64                         `gorm:"column:amount;not null;default:0"`
	Currency  string                        `gorm:"column:currency;not null;default:''"`
	RawEvent  dbtypes.JSON[json.RawMessage] `gorm:"column:raw_event;type:jsonb"`
	CreatedAt time.Time                     `gorm:"column:created_at;autoCreateTime"`
}

func (p *ExternalPayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
