package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ListProducts returns active products for the storefront.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		active := enums.ProductStatusActive
		page, err := svc.ListProducts(r.Context(), catalog.ListProductsParams{Params: params, Status: &active})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

// GetProduct resolves a product by id or slug. Archived products are hidden.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}

		ref := strings.TrimSpace(chi.URLParam(r, "id"))
		var (
			product *models.Product
			err     error
		)
		if id, parseErr := uuid.Parse(ref); parseErr == nil {
			product, err = svc.GetProduct(r.Context(), id)
		} else {
			product, err = svc.GetProductBySlug(r.Context(), ref)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if product.Status != enums.ProductStatusActive {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		responses.WriteSuccess(w, catalog.NewProductDTO(product))
	}
}

type createProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Slug        *string  `json:"slug,omitempty" validate:"omitempty,max=200"`
	Brand       *string  `json:"brand,omitempty"`
	Description *string  `json:"description,omitempty"`
	Images      []string `json:"images,omitempty" validate:"omitempty,dive,required"`
	Price       int64    `json:"price" validate:"gte=0"`
	LowAlert    int64    `json:"lowAlert" validate:"gte=0"`
	Status      *string  `json:"status,omitempty" validate:"omitempty,oneof=active archived"`
}

func (req createProductRequest) toInput() catalog.CreateProductInput {
	status := enums.ProductStatusActive
	if req.Status != nil {
		status = enums.ProductStatus(*req.Status)
	}
	return catalog.CreateProductInput{
		Name:        strings.TrimSpace(req.Name),
		Slug:        req.Slug,
		Brand:       req.Brand,
		Description: req.Description,
		Images:      req.Images,
		Price:       req.Price,
		LowAlert:    req.LowAlert,
		Status:      status,
	}
}

// AdminCreateProduct adds a product to the catalog.
func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "catalog")
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name        *string   `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Brand       *string   `json:"brand,omitempty"`
	Description *string   `json:"description,omitempty"`
	Images      *[]string `json:"images,omitempty"`
	Price       *int64    `json:"price,omitempty" validate:"omitempty,gte=0"`
	LowAlert    *int64    `json:"lowAlert,omitempty" validate:"omitempty,gte=0"`
	Status      *string   `json:"status,omitempty" validate:"omitempty,oneof=active archived"`
}

func (req updateProductRequest) toInput() catalog.UpdateProductInput {
	input := catalog.UpdateProductInput{
		Name:        req.Name,
		Brand:       req.Brand,
		Description: req.Description,
		Images:      req.Images,
		Price:       req.Price,
		LowAlert:    req.LowAlert,
	}
	if req.Status != nil {
		status := enums.ProductStatus(*req.Status)
		input.Status = &status
	}
	return input
}

// AdminUpdateProduct applies a partial update. Stock is owned by the inventory ledger.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createVariantRequest struct {
	SKU        string            `json:"sku" validate:"required,max=64"`
	Attributes map[string]string `json:"attributes" validate:"required,min=1"`
	Price      *int64            `json:"price,omitempty" validate:"omitempty,gte=0"`
	LowAlert   int64             `json:"lowAlert" validate:"gte=0"`
	Active     *bool             `json:"active,omitempty"`
	Images     []string          `json:"images,omitempty"`
}

// AdminCreateVariant attaches a variant to a product.
func AdminCreateVariant(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createVariantRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		variant, err := svc.CreateVariant(r.Context(), productID, catalog.CreateVariantInput{
			SKU:        strings.TrimSpace(payload.SKU),
			Attributes: payload.Attributes,
			Price:      payload.Price,
			LowAlert:   payload.LowAlert,
			Active:     payload.Active,
			Images:     payload.Images,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, variant)
	}
}
