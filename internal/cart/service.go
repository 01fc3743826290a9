package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/catalog"
	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the customer cart and the checkout hooks used by orders.
type Service interface {
	GetOrCreateOpenCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error)
	GetCart(ctx context.Context, ownerID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, ownerID uuid.UUID, item LineItemInput) (*ItemResult, error)
	AddItems(ctx context.Context, ownerID uuid.UUID, items []LineItemInput) (*BatchResult, error)
	UpdateItemQuantity(ctx context.Context, ownerID, itemID uuid.UUID, quantity int64) (*models.CartLineItem, error)
	RemoveItem(ctx context.Context, ownerID, itemID uuid.UUID) error
	LoadForCheckout(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (*CheckoutCart, error)
	Lock(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error
}

// recentLockWindow bounds how long a locked cart explains a missing open cart.
const recentLockWindow = 2 * time.Minute

type service struct {
	repo *Repository
	tx   txRunner
	now  func() time.Time
}

func NewService(repo *Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo: repo,
		tx:   tx,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) GetOrCreateOpenCart(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id is required")
	}
	cart, err := s.repo.FindOpenByOwner(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{OwnerID: ownerID}
	if err := s.repo.Create(ctx, cart); err != nil {
		if !dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		// A concurrent request opened the cart first.
		winner, findErr := s.repo.FindOpenByOwner(ctx, ownerID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "reload cart")
		}
		return winner, nil
	}
	return cart, nil
}

func (s *service) GetCart(ctx context.Context, ownerID uuid.UUID) (*CartView, error) {
	cart, err := s.GetOrCreateOpenCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	products, err := s.repo.LoadProducts(ctx, productIDs(items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	if err := s.resyncPrices(ctx, s.repo, items, products); err != nil {
		return nil, err
	}
	return newCartView(cart, items, products), nil
}

// resyncPrices rewrites stale line prices in place from the live catalog.
func (s *service) resyncPrices(ctx context.Context, repo *Repository, items []models.CartLineItem, products map[uuid.UUID]*models.Product) error {
	for i := range items {
		product, ok := products[items[i].ProductID]
		if !ok {
			continue
		}
		live := catalog.ResolvePrice(product, findVariant(product, items[i].VariantID))
		if live == items[i].Price {
			continue
		}
		if _, err := repo.SyncItemPrice(ctx, items[i].ID, live); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync cart price")
		}
		items[i].Price = live
	}
	return nil
}

func (s *service) AddItem(ctx context.Context, ownerID uuid.UUID, item LineItemInput) (*ItemResult, error) {
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line item is required")
	}
	if item.Qty() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	cart, err := s.GetOrCreateOpenCart(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	var result *ItemResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := s.ensureUnlocked(ctx, repo, cart.ID); err != nil {
			return err
		}
		products, err := repo.LoadProducts(ctx, []uuid.UUID{item.Product()})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		price, err := validateLineItem(products[item.Product()], item)
		if err != nil {
			return err
		}

		variantKey := models.VariantKeyFor(item.Variant())
		_, findErr := repo.FindItemByIdentity(ctx, cart.ID, item.Product(), variantKey)
		created := errors.Is(findErr, gorm.ErrRecordNotFound)
		if findErr != nil && !created {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load cart item")
		}

		line := &models.CartLineItem{
			CartID:     cart.ID,
			ProductID:  item.Product(),
			VariantID:  item.Variant(),
			VariantKey: variantKey,
			Quantity:   item.Qty(),
			Price:      price,
		}
		if err := repo.UpsertItem(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart item")
		}
		stored, err := repo.FindItemByIdentity(ctx, cart.ID, item.Product(), variantKey)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cart item")
		}
		result = &ItemResult{Item: *stored, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) AddItems(ctx context.Context, ownerID uuid.UUID, items []LineItemInput) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	result := &BatchResult{Failed: []BatchFailure{}}
	for idx, item := range items {
		res, err := s.AddItem(ctx, ownerID, item)
		if err != nil {
			result.Failed = append(result.Failed, newBatchFailure(idx, item, err))
			continue
		}
		if res.Created {
			result.Added++
		} else {
			result.Updated++
		}
	}
	if len(result.Failed) == len(items) {
		return result, pkgerrors.New(batchFailureCode(result.Failed), "no items could be added to the cart").
			WithDetails(map[string]any{"failed": result.Failed})
	}
	return result, nil
}

func (s *service) UpdateItemQuantity(ctx context.Context, ownerID, itemID uuid.UUID, quantity int64) (*models.CartLineItem, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	var updated *models.CartLineItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.ownedItem(ctx, repo, ownerID, itemID)
		if err != nil {
			return err
		}
		products, err := repo.LoadProducts(ctx, []uuid.UUID{item.ProductID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		price := item.Price
		if product, ok := products[item.ProductID]; ok {
			price = catalog.ResolvePrice(product, findVariant(product, item.VariantID))
		}
		if err := repo.UpdateItem(ctx, item.ID, quantity, price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		item.Quantity = quantity
		item.Price = price
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) RemoveItem(ctx context.Context, ownerID, itemID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.ownedItem(ctx, repo, ownerID, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart item")
		}
		return nil
	})
}

// ownedItem loads an item for mutation: NOT_FOUND when missing, FORBIDDEN
// when another owner's cart holds it, CART_LOCKED once checked out.
func (s *service) ownedItem(ctx context.Context, repo *Repository, ownerID, itemID uuid.UUID) (*models.CartLineItem, error) {
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	cart, err := repo.FindByID(ctx, item.CartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if cart.OwnerID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cart item belongs to another customer")
	}
	if err := s.ensureUnlocked(ctx, repo, cart.ID); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *service) ensureUnlocked(ctx context.Context, repo *Repository, cartID uuid.UUID) error {
	ok, err := repo.TouchUnlocked(ctx, cartID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart lock")
	}
	if !ok {
		return lockedError(cartID)
	}
	return nil
}

func (s *service) LoadForCheckout(ctx context.Context, tx *gorm.DB, ownerID uuid.UUID) (*CheckoutCart, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout requires a transaction")
	}
	repo := s.repo.WithTx(tx)
	cart, err := repo.FindOpenByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, s.missingCartError(ctx, repo, ownerID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	items, err := repo.ListItems(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}
	products, err := repo.LoadProducts(ctx, productIDs(items))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}
	if err := s.resyncPrices(ctx, repo, items, products); err != nil {
		return nil, err
	}

	checkout := &CheckoutCart{Cart: *cart}
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok || product.Status != enums.ProductStatusActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a product in the cart is no longer available").
				WithDetails(map[string]any{"productId": item.ProductID})
		}
		variant := findVariant(product, item.VariantID)
		if item.VariantID != nil && (variant == nil || !variant.Active) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "a variant in the cart is no longer available").
				WithDetails(map[string]any{"variantId": *item.VariantID})
		}
		checkout.Lines = append(checkout.Lines, CheckoutLine{Item: item, Product: product, Variant: variant})
		checkout.Subtotal += item.Price * item.Quantity
	}
	return checkout, nil
}

// missingCartError distinguishes a checkout that just lost the lock race from
// an owner who never had a cart.
func (s *service) missingCartError(ctx context.Context, repo *Repository, ownerID uuid.UUID) error {
	locked, err := repo.FindLockedSince(ctx, ownerID, s.now().Add(-recentLockWindow))
	switch {
	case err == nil:
		return lockedError(locked.ID)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load locked cart")
	}
}

func (s *service) Lock(ctx context.Context, tx *gorm.DB, cartID uuid.UUID) error {
	ok, err := s.repo.WithTx(tx).Lock(ctx, cartID, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock cart")
	}
	if !ok {
		return lockedError(cartID)
	}
	return nil
}

func lockedError(cartID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeCartLocked, "cart is already checked out").
		WithDetails(map[string]any{"cartId": cartID})
}

// validateLineItem enforces the variant rules and returns the live unit price.
func validateLineItem(product *models.Product, item LineItemInput) (int64, error) {
	if product == nil {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if product.Status != enums.ProductStatusActive {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
	}
	switch typed := item.(type) {
	case SimpleLineItem:
		if product.HasVariants {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "product requires a variant selection").
				WithDetails(map[string]any{"productId": product.ID})
		}
		return catalog.ResolvePrice(product, nil), nil
	case VariantLineItem:
		if !product.HasVariants {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "product has no variants").
				WithDetails(map[string]any{"productId": product.ID})
		}
		variant := findVariant(product, &typed.VariantID)
		if variant == nil {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant does not belong to product").
				WithDetails(map[string]any{"productId": product.ID, "variantId": typed.VariantID})
		}
		if !variant.Active {
			return 0, pkgerrors.New(pkgerrors.CodeValidation, "variant is not available").
				WithDetails(map[string]any{"variantId": typed.VariantID})
		}
		return catalog.ResolvePrice(product, variant), nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "unsupported line item")
	}
}

func findVariant(product *models.Product, variantID *uuid.UUID) *models.ProductVariant {
	if product == nil || variantID == nil {
		return nil
	}
	for i := range product.Variants {
		if product.Variants[i].ID == *variantID {
			return &product.Variants[i]
		}
	}
	return nil
}

func productIDs(items []models.CartLineItem) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
