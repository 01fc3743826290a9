package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// CreateOrderInput captures a checkout request.
type CreateOrderInput struct {
	CustomerID   uuid.UUID
	AddressID    uuid.UUID
	DiscountCode *string
	Notes        *string
	Source       string
}

// TimeFilter narrows admin listings by creation date.
type TimeFilter string

const (
	TimeFilterAll   TimeFilter = "all"
	TimeFilterToday TimeFilter = "today"
	TimeFilterMonth TimeFilter = "month"
)

func (f TimeFilter) IsValid() bool {
	return f == TimeFilterAll || f == TimeFilterToday || f == TimeFilterMonth
}

type ListParams struct {
	pagination.Params
	Status     *enums.OrderStatus
	TimeFilter TimeFilter
}

// OrderList is the admin listing envelope, echoing the applied filters.
type OrderList struct {
	Page         int        `json:"page"`
	PerPage      int        `json:"perPage"`
	TotalPages   int        `json:"totalPages"`
	Total        int64      `json:"total"`
	TimeFilter   string     `json:"timeFilter"`
	StatusFilter string     `json:"statusFilter"`
	Data         []OrderDTO `json:"data"`
}

type OrderDTO struct {
	ID               uuid.UUID              `json:"id"`
	OrderCode        string                 `json:"orderCode"`
	CustomerID       uuid.UUID              `json:"customerId"`
	CartID           uuid.UUID              `json:"cartId"`
	AddressID        uuid.UUID              `json:"addressId"`
	Status           string                 `json:"status"`
	Payment          string                 `json:"payment"`
	PaymentReference *string                `json:"paymentReference,omitempty"`
	TotalAmount      int64                  `json:"totalAmount"`
	DiscountID       *uuid.UUID             `json:"discountId,omitempty"`
	DiscountCode     *string                `json:"discountCode,omitempty"`
	DiscountAmount   int64                  `json:"discountAmount"`
	ShippingCost     int64                  `json:"shippingCost"`
	AmountDue        int64                  `json:"amountDue"`
	Items            []models.SnapshotLine  `json:"items"`
	ShippingAddress  models.AddressSnapshot `json:"shippingAddress"`
	Notes            *string                `json:"notes,omitempty"`
	CancelReason     *string                `json:"cancelReason,omitempty"`
	PaymentMadeAt    *time.Time             `json:"paymentMadeAt,omitempty"`
	CancelledAt      *time.Time             `json:"cancelledAt,omitempty"`
	RefundedAt       *time.Time             `json:"refundedAt,omitempty"`
	RefundedAmount   int64                  `json:"refundedAmount"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

func NewOrderDTO(o *models.Order) OrderDTO {
	items := o.CartFinalState.Data
	if items == nil {
		items = []models.SnapshotLine{}
	}
	return OrderDTO{
		ID:               o.ID,
		OrderCode:        o.OrderCode,
		CustomerID:       o.CustomerID,
		CartID:           o.CartID,
		AddressID:        o.AddressID,
		Status:           string(o.Status),
		Payment:          string(o.Payment),
		PaymentReference: o.PaymentReference,
		TotalAmount:      o.TotalAmount,
		DiscountID:       o.DiscountID,
		DiscountCode:     o.DiscountCode,
		DiscountAmount:   o.DiscountAmount,
		ShippingCost:     o.ShippingCost,
		AmountDue:        o.PayableAmount(),
		Items:            items,
		ShippingAddress:  o.ShippingAddress.Data,
		Notes:            o.Notes,
		CancelReason:     o.CancelReason,
		PaymentMadeAt:    o.PaymentMadeAt,
		CancelledAt:      o.CancelledAt,
		RefundedAt:       o.RefundedAt,
		RefundedAmount:   o.RefundedAmount,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

// OverviewWindow bounds the dashboard counters.
type OverviewWindow string

const (
	OverviewAll     OverviewWindow = "all"
	OverviewDaily   OverviewWindow = "daily"
	OverviewMonthly OverviewWindow = "monthly"
)

type Overview struct {
	Window          string `json:"timeFilter"`
	NewOrders       int64  `json:"newOrders"`
	PendingOrders   int64  `json:"pendingOrders"`
	DeliveredOrders int64  `json:"deliveredOrders"`
}

// RevenueGrouping selects the revenue chart resolution.
type RevenueGrouping string

const (
	RevenueByWeek  RevenueGrouping = "week"
	RevenueByMonth RevenueGrouping = "month"
	RevenueByYear  RevenueGrouping = "year"
)

type RevenueBucket struct {
	Date           string `json:"date"`
	Amount         int64  `json:"amount"`
	NumberOfOrders int64  `json:"numberOfOrders"`
}
