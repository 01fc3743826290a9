package cart

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// LineItemInput is either a SimpleLineItem or a VariantLineItem.
type LineItemInput interface {
	Product() uuid.UUID
	Variant() *uuid.UUID
	Qty() int64
	isLineItem()
}

// SimpleLineItem targets a product without variants.
type SimpleLineItem struct {
	ProductID uuid.UUID
	Quantity  int64
}

func (s SimpleLineItem) Product() uuid.UUID  { return s.ProductID }
func (s SimpleLineItem) Variant() *uuid.UUID { return nil }
func (s SimpleLineItem) Qty() int64          { return s.Quantity }
func (SimpleLineItem) isLineItem()           {}

// VariantLineItem targets one variant of a product.
type VariantLineItem struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
	Quantity  int64
}

func (v VariantLineItem) Product() uuid.UUID { return v.ProductID }
func (v VariantLineItem) Variant() *uuid.UUID {
	id := v.VariantID
	return &id
}
func (v VariantLineItem) Qty() int64 { return v.Quantity }
func (VariantLineItem) isLineItem()  {}

// RawLineItem is the request shape accepted by the cart endpoints.
type RawLineItem struct {
	ProductID string  `json:"productId" validate:"required,uuid"`
	VariantID *string `json:"variantId,omitempty" validate:"omitempty,uuid"`
	Quantity  int64   `json:"quantity" validate:"required,gt=0"`
}

// ParseLineItem turns a request item into a typed line item.
func ParseLineItem(raw RawLineItem) (LineItemInput, error) {
	productID, err := uuid.Parse(strings.TrimSpace(raw.ProductID))
	if err != nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId must be a valid uuid").
			WithDetails(map[string]any{"field": "productId"})
	}
	if raw.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero").
			WithDetails(map[string]any{"field": "quantity"})
	}
	if raw.VariantID == nil || strings.TrimSpace(*raw.VariantID) == "" {
		return SimpleLineItem{ProductID: productID, Quantity: raw.Quantity}, nil
	}
	variantID, err := uuid.Parse(strings.TrimSpace(*raw.VariantID))
	if err != nil || variantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variantId must be a valid uuid").
			WithDetails(map[string]any{"field": "variantId"})
	}
	return VariantLineItem{ProductID: productID, VariantID: variantID, Quantity: raw.Quantity}, nil
}
