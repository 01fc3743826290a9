package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	cartsvc "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/discounts"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type cartReader interface {
	GetCart(ctx context.Context, ownerID uuid.UUID) (*cartsvc.CartView, error)
}

type createDiscountRequest struct {
	Name       string          `json:"name" validate:"required,max=120"`
	Code       string          `json:"code" validate:"required,max=64"`
	Percentage decimal.Decimal `json:"percentage"`
	Limit      int64           `json:"limit" validate:"gte=1"`
	Validity   time.Time       `json:"validity" validate:"required"`
	PriceLimit int64           `json:"priceLimit" validate:"gte=0"`
}

// AdminDiscountCreate creates a discount code. Codes are stored upper-case.
func AdminDiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "discount")
			return
		}

		var payload createDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Create(r.Context(), discounts.CreateInput{
			Name:       strings.TrimSpace(payload.Name),
			Code:       payload.Code,
			Percentage: payload.Percentage,
			Limit:      payload.Limit,
			Validity:   payload.Validity,
			PriceLimit: payload.PriceLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, discount)
	}
}

func AdminDiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, page)
	}
}

func AdminDiscountGet(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.GetByID(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, discount)
	}
}

func AdminDiscountGetByCode(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "discount code is required"))
			return
		}

		discount, err := svc.GetByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, discount)
	}
}

type updateDiscountRequest struct {
	Name       *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Limit      *int64           `json:"limit,omitempty" validate:"omitempty,gte=1"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
	Validity   *time.Time       `json:"validity,omitempty"`
	PriceLimit *int64           `json:"priceLimit,omitempty" validate:"omitempty,gte=0"`
}

func AdminDiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discount, err := svc.Update(r.Context(), id, discounts.UpdateInput{
			Name:       payload.Name,
			Limit:      payload.Limit,
			Percentage: payload.Percentage,
			Validity:   payload.Validity,
			PriceLimit: payload.PriceLimit,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, discount)
	}
}

type deleteDiscountsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,uuid"`
}

// AdminDiscountDelete hides one or more discounts.
func AdminDiscountDelete(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload deleteDiscountsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids := make([]uuid.UUID, 0, len(payload.IDs))
		for _, raw := range payload.IDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount id"))
				return
			}
			ids = append(ids, id)
		}

		deleted, err := svc.Delete(r.Context(), ids...)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int64{"deleted": deleted})
	}
}

type validateDiscountRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}

// DiscountValidate previews a code against the caller's current cart
// subtotal without consuming a use.
func DiscountValidate(svc discounts.Service, carts cartReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || carts == nil {
			serviceUnavailable(w, r, logg, "discount")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload validateDiscountRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := carts.GetCart(r.Context(), actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(view.Items) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty"))
			return
		}

		quote, err := svc.Validate(r.Context(), payload.Code, view.Subtotal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}
