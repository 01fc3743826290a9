package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// CartView is the open cart with live prices and its subtotal.
type CartView struct {
	ID        uuid.UUID      `json:"id"`
	OwnerID   uuid.UUID      `json:"ownerId"`
	Items     []CartItemView `json:"items"`
	ItemCount int64          `json:"itemCount"`
	Subtotal  int64          `json:"subtotal"`
}

type CartItemView struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    uuid.UUID  `json:"productId"`
	VariantID    *uuid.UUID `json:"variantId,omitempty"`
	Name         string     `json:"name"`
	VariantTitle string     `json:"variantTitle,omitempty"`
	Quantity     int64      `json:"quantity"`
	Price        int64      `json:"price"`
	LineTotal    int64      `json:"lineTotal"`
}

// ItemResult reports the stored line and whether it was newly inserted.
type ItemResult struct {
	Item    models.CartLineItem `json:"item"`
	Created bool                `json:"created"`
}

// BatchResult summarises a best-effort multi-item add.
type BatchResult struct {
	Added   int            `json:"added"`
	Updated int            `json:"updated"`
	Failed  []BatchFailure `json:"failed"`
}

type BatchFailure struct {
	Index     int       `json:"index"`
	ProductID uuid.UUID `json:"productId"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// CheckoutCart is the priced cart an order is built from.
type CheckoutCart struct {
	Cart     models.Cart
	Lines    []CheckoutLine
	Subtotal int64
}

type CheckoutLine struct {
	Item    models.CartLineItem
	Product *models.Product
	Variant *models.ProductVariant
}

func newCartView(cart *models.Cart, items []models.CartLineItem, products map[uuid.UUID]*models.Product) *CartView {
	view := &CartView{ID: cart.ID, OwnerID: cart.OwnerID, Items: make([]CartItemView, 0, len(items))}
	for _, item := range items {
		line := CartItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: item.Price * item.Quantity,
		}
		if product, ok := products[item.ProductID]; ok {
			line.Name = product.Name
			if variant := findVariant(product, item.VariantID); variant != nil {
				line.VariantTitle = variant.Title()
			}
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.Subtotal += line.LineTotal
	}
	return view
}

func newBatchFailure(idx int, item LineItemInput, err error) BatchFailure {
	failure := BatchFailure{Index: idx, Code: string(pkgerrors.CodeInternal), Message: err.Error()}
	if item != nil {
		failure.ProductID = item.Product()
	}
	if typed := pkgerrors.As(err); typed != nil {
		failure.Code = string(typed.Code())
		failure.Message = typed.Message()
	}
	return failure
}

// batchFailureCode returns the shared code when every failure agrees.
func batchFailureCode(failures []BatchFailure) pkgerrors.Code {
	if len(failures) == 0 {
		return pkgerrors.CodeValidation
	}
	code := failures[0].Code
	for _, f := range failures[1:] {
		if f.Code != code {
			return pkgerrors.CodeValidation
		}
	}
	return pkgerrors.Code(code)
}
