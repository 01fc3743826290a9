package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the immutable record produced by checkout. Only status, payment
// and their timestamps change after creation.
type Order struct {
	ID               uuid.UUID                     `gorm:"column:id;type:uuid;primaryKey"`
	OrderCode        string                        `gorm:"column:order_code;not null;uniqueIndex:ux_orders_order_code"`
	CustomerID       uuid.UUID                     `gorm:"column:customer_id;type:uuid;not null;index:idx_orders_customer"`
	CartID           uuid.UUID                     `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:ux_orders_cart"`
	AddressID        uuid.UUID                     `gorm:"column:address_id;type:uuid;not null"`
	TotalAmount      int64                         `gorm:"column:total_amount;not null"`
	DiscountID       *uuid.UUID                    `gorm:"column:discount_id;type:uuid"`
	DiscountCode     *string                       `gorm:"column:discount_code"`
	DiscountAmount   int64                         `gorm:"column:discount_amount;not null;default:0"`
	ShippingCost     int64                         `gorm:"column:shipping_cost;not null;default:0"`
	Status           enums.OrderStatus             `gorm:"column:status;type:text;not null;index:idx_orders_status"`
	Payment          enums.PaymentState            `gorm:"column:payment;type:text;not null"`
	PaymentReference *string                       `gorm:"column:payment_reference"`
	PaymentMadeAt    *time.Time                    `gorm:"column:payment_made_at"`
	CancelledAt      *time.Time                    `gorm:"column:cancelled_at"`
	CancelReason     *string                       `gorm:"column:cancel_reason"`
	RefundedAt       *time.Time                    `gorm:"column:refunded_at"`
	RefundedAmount   int64                         `gorm:"column:refunded_amount;not null;default:0"`
	Notes            *string                       `gorm:"column:notes"`
	Source           string                        `gorm:"column:source;not null;default:''"`
	CartFinalState   dbtypes.JSON[[]SnapshotLine]  `gorm:"column:cart_final_state;type:jsonb;not null"`
	ShippingAddress  dbtypes.JSON[AddressSnapshot] `gorm:"column:shipping_address;type:jsonb;not null"`
	CreatedAt        time.Time                     `gorm:"column:created_at;autoCreateTime;index:idx_orders_created_at"`
	UpdatedAt        time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// PayableAmount is what the customer owes: the discounted subtotal plus shipping.
func (o Order) PayableAmount() int64 {
	return o.TotalAmount - o.DiscountAmount + o.ShippingCost
}

// SnapshotLine is one purchased line as it was at checkout.
type SnapshotLine struct {
	ProductID    uuid.UUID  `json:"productId"`
	VariantID    *uuid.UUID `json:"variantId,omitempty"`
	Name         string     `json:"name"`
	VariantTitle string     `json:"variantTitle,omitempty"`
	SKU          string     `json:"sku,omitempty"`
	Quantity     int64      `json:"quantity"`
	UnitPrice    int64      `json:"unitPrice"`
}

// LineTotal returns quantity times unit price.
func (l SnapshotLine) LineTotal() int64 {
	return l.Quantity * l.UnitPrice
}

// AddressSnapshot freezes the shipping destination at checkout.
type AddressSnapshot struct {
	Name        string  `json:"name"`
	PhoneNumber string  `json:"phoneNumber"`
	Line1       string  `json:"line1"`
	Line2       *string `json:"line2,omitempty"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Country     string  `json:"country"`
	Zip         *string `json:"zip,omitempty"`
}

// OrderSequence is the per-day counter backing order codes.
type OrderSequence struct {
	Day   string `gorm:"column:day;primaryKey"`
	Value int64  `gorm:"column:value;not null"`
}
