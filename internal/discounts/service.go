package discounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

var hundred = decimal.NewFromInt(100)

// Service manages discount codes and prices redemptions against a subtotal.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*DiscountDTO, error)
	GetByID(ctx context.Context, id uuid.UUID) (*DiscountDTO, error)
	GetByCode(ctx context.Context, code string) (*DiscountDTO, error)
	List(ctx context.Context, params pagination.Params) (types.Page[DiscountDTO], error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*DiscountDTO, error)
	Delete(ctx context.Context, ids ...uuid.UUID) (int64, error)
	Validate(ctx context.Context, code string, subtotal int64) (*Quote, error)
	Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*Quote, error)
}

type CreateInput struct {
	Name       string
	Code       string
	Percentage decimal.Decimal
	Limit      int64
	Validity   time.Time
	PriceLimit int64
}

type UpdateInput struct {
	Name       *string
	Limit      *int64
	Percentage *decimal.Decimal
	Validity   *time.Time
	PriceLimit *int64
}

// Quote is the priced outcome of applying a discount to a subtotal.
type Quote struct {
	DiscountID uuid.UUID       `json:"discountId"`
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
	Subtotal   int64           `json:"subtotal"`
	Amount     int64           `json:"discountAmount"`
	Total      int64           `json:"total"`
}

type DiscountDTO struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
	Limit      int64           `json:"limit"`
	Uses       int64           `json:"uses"`
	Remaining  int64           `json:"remaining"`
	Validity   time.Time       `json:"validity"`
	PriceLimit int64           `json:"priceLimit"`
	CreatedAt  time.Time       `json:"createdAt"`
}

func newDiscountDTO(d *models.Discount) *DiscountDTO {
	remaining := d.UsageLimit - d.Uses
	if remaining < 0 {
		remaining = 0
	}
	return &DiscountDTO{
		ID:         d.ID,
		Name:       d.Name,
		Code:       d.Code,
		Percentage: d.Percentage,
		Limit:      d.UsageLimit,
		Uses:       d.Uses,
		Remaining:  remaining,
		Validity:   d.Validity,
		PriceLimit: d.PriceLimit,
		CreatedAt:  d.CreatedAt,
	}
}

type service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("discount repository required")
	}
	return &service{repo: repo, now: func() time.Time { return time.Now().UTC() }}, nil
}

// NormalizeCode upper-cases and trims a code the way it is stored.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ComputeAmount returns floor(subtotal * percentage / 100), capped at subtotal.
func ComputeAmount(subtotal int64, percentage decimal.Decimal) int64 {
	if subtotal <= 0 || !percentage.IsPositive() {
		return 0
	}
	amount := decimal.NewFromInt(subtotal).Mul(percentage).Div(hundred).Floor().IntPart()
	if amount > subtotal {
		return subtotal
	}
	return amount
}

func validatePercentage(p decimal.Decimal) error {
	if !p.IsPositive() || p.GreaterThan(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "percentage must be greater than 0 and at most 100")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*DiscountDTO, error) {
	code := NormalizeCode(input.Code)
	name := strings.TrimSpace(input.Name)
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code is required")
	}
	if name == "" {
		name = code
	}
	if err := validatePercentage(input.Percentage); err != nil {
		return nil, err
	}
	if input.Limit < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be at least 1")
	}
	if !input.Validity.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity must be in the future")
	}
	if input.PriceLimit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price limit must be non-negative")
	}

	discount := &models.Discount{
		Name:       name,
		Code:       code,
		Percentage: input.Percentage,
		UsageLimit: input.Limit,
		Validity:   input.Validity.UTC(),
		PriceLimit: input.PriceLimit,
		IsVisible:  true,
	}
	if err := s.repo.Create(ctx, discount); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "discount code already exists").
				WithDetails(map[string]any{"code": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create discount")
	}
	return newDiscountDTO(discount), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*DiscountDTO, error) {
	discount, err := s.loadByID(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return newDiscountDTO(discount), nil
}

func (s *service) GetByCode(ctx context.Context, code string) (*DiscountDTO, error) {
	discount, err := s.loadByCode(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}
	return newDiscountDTO(discount), nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (types.Page[DiscountDTO], error) {
	page := params.Normalize()
	rows, total, err := s.repo.ListVisible(ctx, page.Offset(), page.Limit())
	if err != nil {
		return types.Page[DiscountDTO]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list discounts")
	}
	dtos := make([]DiscountDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *newDiscountDTO(&rows[i]))
	}
	return pagination.NewPage(page, total, dtos), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*DiscountDTO, error) {
	discount, err := s.loadByID(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Limit != nil {
		if *input.Limit < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be at least 1")
		}
		if *input.Limit < discount.Uses {
			return nil, limitBelowUses(discount.Uses)
		}
		updates["usage_limit"] = *input.Limit
	}
	if input.Percentage != nil {
		if err := validatePercentage(*input.Percentage); err != nil {
			return nil, err
		}
		updates["percentage"] = *input.Percentage
	}
	if input.Validity != nil {
		if !input.Validity.After(s.now()) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "validity must be in the future")
		}
		updates["validity"] = input.Validity.UTC()
	}
	if input.PriceLimit != nil {
		if *input.PriceLimit < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price limit must be non-negative")
		}
		updates["price_limit"] = *input.PriceLimit
	}
	if len(updates) == 0 {
		return newDiscountDTO(discount), nil
	}

	applied, err := s.repo.UpdateFields(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update discount")
	}
	reloaded, err := s.loadByID(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, limitBelowUses(reloaded.Uses)
	}
	return newDiscountDTO(reloaded), nil
}

func limitBelowUses(uses int64) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "limit cannot be lower than uses").
		WithDetails(map[string]any{"uses": uses})
}

func (s *service) Delete(ctx context.Context, ids ...uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one discount id is required")
	}
	hidden, err := s.repo.Hide(ctx, ids)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete discounts")
	}
	return hidden, nil
}

func (s *service) Validate(ctx context.Context, code string, subtotal int64) (*Quote, error) {
	discount, err := s.loadByCode(ctx, s.repo, code)
	if err != nil {
		return nil, err
	}
	if err := s.checkRedeemable(discount, subtotal); err != nil {
		return nil, err
	}
	return quoteFor(discount, subtotal), nil
}

func (s *service) Redeem(ctx context.Context, tx *gorm.DB, code string, subtotal int64) (*Quote, error) {
	repo := s.repo.WithTx(tx)
	discount, err := s.loadByCode(ctx, repo, code)
	if err != nil {
		return nil, err
	}
	if err := s.checkRedeemable(discount, subtotal); err != nil {
		return nil, err
	}

	now := s.now()
	claimed, err := repo.IncrementUses(ctx, discount.ID, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redeem discount")
	}
	if !claimed {
		return nil, s.classifyRejected(ctx, repo, discount.ID, now)
	}
	return quoteFor(discount, subtotal), nil
}

func (s *service) checkRedeemable(discount *models.Discount, subtotal int64) error {
	if !discount.Validity.After(s.now()) {
		return expiredError(discount)
	}
	if discount.Uses >= discount.UsageLimit {
		return limitError(discount)
	}
	if subtotal < discount.PriceLimit {
		return pkgerrors.New(pkgerrors.CodeValidation, "subtotal is below the discount minimum").
			WithDetails(map[string]any{"priceLimit": discount.PriceLimit, "subtotal": subtotal})
	}
	return nil
}

// classifyRejected re-reads a discount whose guarded increment matched no row.
func (s *service) classifyRejected(ctx context.Context, repo *Repository, id uuid.UUID, now time.Time) error {
	current, err := repo.FindByIDAny(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload discount")
	}
	switch {
	case !current.IsVisible:
		return pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
	case !current.Validity.After(now):
		return expiredError(current)
	default:
		return limitError(current)
	}
}

func expiredError(d *models.Discount) error {
	return pkgerrors.New(pkgerrors.CodeDiscountExpired, "discount has expired").
		WithDetails(map[string]any{"code": d.Code, "validity": d.Validity})
}

func limitError(d *models.Discount) error {
	return pkgerrors.New(pkgerrors.CodeDiscountLimitReached, "discount usage limit reached").
		WithDetails(map[string]any{"code": d.Code, "limit": d.UsageLimit})
}

func quoteFor(d *models.Discount, subtotal int64) *Quote {
	amount := ComputeAmount(subtotal, d.Percentage)
	return &Quote{
		DiscountID: d.ID,
		Code:       d.Code,
		Percentage: d.Percentage,
		Subtotal:   subtotal,
		Amount:     amount,
		Total:      subtotal - amount,
	}
}

func (s *service) loadByID(ctx context.Context, repo *Repository, id uuid.UUID) (*models.Discount, error) {
	discount, err := repo.FindVisibleByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return discount, nil
}

func (s *service) loadByCode(ctx context.Context, repo *Repository, code string) (*models.Discount, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required")
	}
	discount, err := repo.FindVisibleByCode(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "discount not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load discount")
	}
	return discount, nil
}
