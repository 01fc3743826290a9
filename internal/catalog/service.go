package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Service exposes catalog reads, admin writes, and the stock counter used by
// the inventory ledger.
type Service interface {
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*models.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) (types.Page[ProductDTO], error)
	CreateVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*VariantDTO, error)
	GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error)
	AdjustStock(ctx context.Context, tx *gorm.DB, target StockTarget, delta int64) (StockChange, error)
	SetStock(ctx context.Context, tx *gorm.DB, target StockTarget, stock int64) error
	SetLowStockNotified(ctx context.Context, tx *gorm.DB, target StockTarget, notified bool) (bool, error)
	ListAllProducts(ctx context.Context) ([]models.Product, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Slug        *string
	Brand       *string
	Description *string
	Images      []string
	Price       int64
	LowAlert    int64
	Status      enums.ProductStatus
}

// UpdateProductInput holds optional product mutations.
type UpdateProductInput struct {
	Name        *string
	Brand       *string
	Description *string
	Images      *[]string
	Price       *int64
	LowAlert    *int64
	Status      *enums.ProductStatus
}

// CreateVariantInput describes a new variant. A nil Price inherits the
// product price and a nil Active defaults to true.
type CreateVariantInput struct {
	SKU        string
	Attributes map[string]string
	Price      *int64
	LowAlert   int64
	Active     *bool
	Images     []string
}

type ListProductsParams struct {
	pagination.Params
	Status *enums.ProductStatus
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// ResolvePrice returns the variant price when one is set, otherwise the
// product price.
func ResolvePrice(product *models.Product, variant *models.ProductVariant) int64 {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	if product == nil {
		return 0
	}
	return product.Price
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.LowAlert < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_alert must be non-negative")
	}
	status := input.Status
	if status == "" {
		status = enums.ProductStatusActive
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
	}

	slug := Slugify(name)
	if input.Slug != nil && strings.TrimSpace(*input.Slug) != "" {
		slug = Slugify(*input.Slug)
	}
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug could not be derived from name")
	}

	product := &models.Product{
		Name:        name,
		Slug:        slug,
		Brand:       trimmedPtr(input.Brand),
		Description: trimmedPtr(input.Description),
		Images:      dbtypes.NewJSON(nonNilStrings(input.Images)),
		Price:       input.Price,
		LowAlert:    input.LowAlert,
		Status:      status,
	}
	if err := s.repo.CreateProduct(ctx, product); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "product slug already exists").
				WithDetails(map[string]any{"slug": slug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	fields := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		fields["name"] = name
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
		}
		fields["price"] = *input.Price
	}
	if input.LowAlert != nil {
		if *input.LowAlert < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_alert must be non-negative")
		}
		fields["low_alert"] = *input.LowAlert
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product status")
		}
		fields["status"] = *input.Status
	}
	if input.Brand != nil {
		fields["brand"] = trimmedPtr(input.Brand)
	}
	if input.Description != nil {
		fields["description"] = trimmedPtr(input.Description)
	}
	if input.Images != nil {
		fields["images"] = dbtypes.NewJSON(nonNilStrings(*input.Images))
	}

	if err := s.repo.UpdateProductFields(ctx, productID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	// Reload so the response carries counters written by concurrent movements.
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	product, err := s.repo.FindProductBySlug(ctx, Slugify(slug))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context, params ListProductsParams) (types.Page[ProductDTO], error) {
	page := params.Params.Normalize()
	rows, total, err := s.repo.ListProducts(ctx, productListQuery{
		Offset: page.Offset(),
		Limit:  page.Limit(),
		Status: params.Status,
	})
	if err != nil {
		return types.Page[ProductDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, NewProductDTO(&rows[i]))
	}
	return pagination.NewPage(page, total, dtos), nil
}

func (s *service) CreateVariant(ctx context.Context, productID uuid.UUID, input CreateVariantInput) (*VariantDTO, error) {
	sku := strings.ToUpper(strings.TrimSpace(input.SKU))
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.LowAlert < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low_alert must be non-negative")
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	attributes := input.Attributes
	if attributes == nil {
		attributes = map[string]string{}
	}

	var created models.ProductVariant
	var parent *models.Product
	err := s.repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProductByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		parent = product
		created = models.ProductVariant{
			ProductID:  productID,
			SKU:        sku,
			Attributes: dbtypes.NewJSON(attributes),
			Price:      input.Price,
			LowAlert:   input.LowAlert,
			Active:     active,
			Images:     dbtypes.NewJSON(nonNilStrings(input.Images)),
		}
		if err := repo.CreateVariant(ctx, &created); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variant sku already exists").
					WithDetails(map[string]any{"sku": sku})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create variant")
		}
		if !product.HasVariants {
			if err := repo.MarkHasVariants(ctx, productID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag product variants")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &VariantDTO{
		ID:         created.ID,
		SKU:        created.SKU,
		Title:      created.Title(),
		Attributes: created.Attributes.Data,
		Price:      ResolvePrice(parent, &created),
		Stock:      created.Stock,
		LowAlert:   created.LowAlert,
		Active:     created.Active,
		Images:     created.Images.Data,
	}, nil
}

func (s *service) GetVariant(ctx context.Context, productID, variantID uuid.UUID) (*models.ProductVariant, error) {
	variant, err := s.repo.FindVariant(ctx, productID, variantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for product")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variant")
	}
	return variant, nil
}

func (s *service) AdjustStock(ctx context.Context, tx *gorm.DB, target StockTarget, delta int64) (StockChange, error) {
	change, err := s.repo.WithTx(tx).AdjustStock(ctx, target, delta)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StockChange{}, pkgerrors.New(pkgerrors.CodeNotFound, "stock target not found")
		}
		if errors.Is(err, ErrStockContention) {
			return StockChange{}, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "stock is being updated concurrently")
		}
		return StockChange{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust stock")
	}
	return change, nil
}

// SetStock overwrites the cached counter, used when repairing drift.
func (s *service) SetStock(ctx context.Context, tx *gorm.DB, target StockTarget, stock int64) error {
	if stock < 0 {
		stock = 0
	}
	if err := s.repo.WithTx(tx).SetStock(ctx, target, stock); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set stock")
	}
	return nil
}

// SetLowStockNotified flips the alert flag and reports whether this call
// performed the flip.
func (s *service) SetLowStockNotified(ctx context.Context, tx *gorm.DB, target StockTarget, notified bool) (bool, error) {
	flipped, err := s.repo.WithTx(tx).SetLowStockNotified(ctx, target, notified)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update low stock flag")
	}
	return flipped, nil
}

func (s *service) ListAllProducts(ctx context.Context) ([]models.Product, error) {
	rows, err := s.repo.ListAllProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
