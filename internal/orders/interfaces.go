package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository defines persistence operations for orders and their daily sequence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByCode(ctx context.Context, code string) (*models.Order, error)
	List(ctx context.Context, filter listFilter, offset, limit int) ([]models.Order, int64, error)
	NextSequence(ctx context.Context, day string) (int64, error)
	UpdateIfStatus(ctx context.Context, id uuid.UUID, from enums.OrderStatus, updates map[string]any) (bool, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	StampPaymentMadeAt(ctx context.Context, id uuid.UUID, at time.Time) error
	CountByStatusSince(ctx context.Context, since *time.Time) (map[enums.OrderStatus]int64, error)
	RevenueRowsSince(ctx context.Context, since time.Time) ([]revenueRow, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartCheckout interface {
	LoadForCheckout(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (*cart.CheckoutCart, error)
	Lock(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

type discountRedeemer interface {
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*discounts.Quote, error)
}

type shippingQuoter interface {
	Quote(ctx context.Context, region string) (*shipping.Quote, error)
}

type addressBook interface {
	GetForOwner(ctx context.Context, ownerID, id uuid.UUID) (*models.Address, error)
}

type stockRecorder interface {
	RecordMovementTx(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.InventoryEntry, error)
}

// CustomerDirectory resolves where customer notifications are sent.
type CustomerDirectory interface {
	EmailFor(ctx context.Context, userID uuid.UUID) (string, error)
}
