package notifications

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Template identifiers understood by the mailers.
const (
	TemplateOrderConfirmation = "order.confirmation"
	TemplateOrderCancelled    = "order.cancelled"
	TemplateOrderCancelFailed = "order.cancel_failed"
	TemplateOrderShipped      = "order.shipped"
	TemplateOrderDelivered    = "order.delivered"
	TemplateOrderRefunded     = "order.refunded"
	TemplatePaymentReceived   = "payment.received"
	TemplateLowStock          = "inventory.low_stock"
)

// Message is a single templated email request.
type Message struct {
	To        string         `json:"to"`
	Subject   string         `json:"subject"`
	Template  string         `json:"template"`
	Variables map[string]any `json:"variables,omitempty"`

	AggregateType enums.OutboxAggregateType `json:"-"`
	AggregateID   uuid.UUID                 `json:"-"`
}
