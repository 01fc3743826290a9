package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// ProductDTO is the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Brand       *string      `json:"brand,omitempty"`
	Description *string      `json:"description,omitempty"`
	Images      []string     `json:"images"`
	Price       int64        `json:"price"`
	Stock       int64        `json:"stock"`
	LowAlert    int64        `json:"lowAlert"`
	HasVariants bool         `json:"hasVariants"`
	Status      string       `json:"status"`
	Variants    []VariantDTO `json:"variants,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// VariantDTO exposes a purchasable variant with its resolved price.
type VariantDTO struct {
	ID         uuid.UUID         `json:"id"`
	SKU        string            `json:"sku"`
	Title      string            `json:"title"`
	Attributes map[string]string `json:"attributes"`
	Price      int64             `json:"price"`
	Stock      int64             `json:"stock"`
	LowAlert   int64             `json:"lowAlert"`
	Active     bool              `json:"active"`
	Images     []string          `json:"images"`
}

func NewProductDTO(product *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:          product.ID,
		Name:        product.Name,
		Slug:        product.Slug,
		Brand:       product.Brand,
		Description: product.Description,
		Images:      nonNilStrings(product.Images.Data),
		Price:       product.Price,
		Stock:       product.Stock,
		LowAlert:    product.LowAlert,
		HasVariants: product.HasVariants,
		Status:      string(product.Status),
		CreatedAt:   product.CreatedAt,
		UpdatedAt:   product.UpdatedAt,
	}
	for i := range product.Variants {
		variant := product.Variants[i]
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:         variant.ID,
			SKU:        variant.SKU,
			Title:      variant.Title(),
			Attributes: variant.Attributes.Data,
			Price:      ResolvePrice(product, &variant),
			Stock:      variant.Stock,
			LowAlert:   variant.LowAlert,
			Active:     variant.Active,
			Images:     nonNilStrings(variant.Images.Data),
		})
	}
	return dto
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
