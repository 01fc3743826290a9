package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// MovementInput describes one stock movement.
type MovementInput struct {
	ProductID   uuid.UUID
	VariantID   *uuid.UUID
	OrderID     *uuid.UUID
	Action      enums.InventoryAction
	Quantity    int64
	UserID      uuid.UUID
	Description string
}

type EntryDTO struct {
	ID          uuid.UUID  `json:"id"`
	ProductID   uuid.UUID  `json:"productId"`
	VariantID   *uuid.UUID `json:"variantId,omitempty"`
	OrderID     *uuid.UUID `json:"orderId,omitempty"`
	Action      string     `json:"action"`
	Quantity    int64      `json:"quantity"`
	UserID      uuid.UUID  `json:"userId"`
	Description string     `json:"description"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewEntryDTO(e models.InventoryEntry) EntryDTO {
	return EntryDTO{
		ID:          e.ID,
		ProductID:   e.ProductID,
		VariantID:   e.VariantID,
		OrderID:     e.OrderID,
		Action:      string(e.Action),
		Quantity:    e.Quantity,
		UserID:      e.UserID,
		Description: e.Description,
		Active:      e.Active,
		CreatedAt:   e.CreatedAt,
	}
}

// ProductLedger is a product's running total plus a page of its entries.
type ProductLedger struct {
	AmountInStock int64                `json:"amountInStock"`
	Entries       types.Page[EntryDTO] `json:"entries"`
}

type StockItem struct {
	ProductID   uuid.UUID `json:"productId"`
	Name        string    `json:"name"`
	Stock       int64     `json:"stock"`
	LowAlert    int64     `json:"lowAlert"`
	HasVariants bool      `json:"hasVariants"`
	Low         bool      `json:"low"`
}

// Overview pages products by stock health with global counts.
type Overview struct {
	Page          int         `json:"page"`
	PerPage       int         `json:"perPage"`
	TotalPages    int         `json:"totalPages"`
	Total         int64       `json:"total"`
	StatusFilter  string      `json:"statusFilter"`
	LowStockItems int64       `json:"lowStockItems"`
	StockedItems  int64       `json:"stockedItems"`
	Data          []StockItem `json:"data"`
}

// Drift is one counter whose cached stock disagrees with the ledger.
type Drift struct {
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Cached    int64      `json:"cached"`
	Ledger    int64      `json:"ledger"`
	Repaired  bool       `json:"repaired"`
}

type AuditReport struct {
	Checked int     `json:"checked"`
	Drifts  []Drift `json:"drifts"`
}
