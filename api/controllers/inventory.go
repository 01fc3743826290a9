package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/inventory"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type recordMovementRequest struct {
	ProductID   string  `json:"productId" validate:"required,uuid"`
	VariantID   *string `json:"variantId,omitempty" validate:"omitempty,uuid"`
	Action      string  `json:"action" validate:"required,oneof=stock_in stock_out"`
	Quantity    int64   `json:"quantity" validate:"gt=0"`
	Description string  `json:"description" validate:"max=500"`
}

func (req recordMovementRequest) toInput(actorID uuid.UUID) (inventory.MovementInput, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return inventory.MovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
	}
	action, err := enums.ParseInventoryAction(req.Action)
	if err != nil {
		return inventory.MovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action")
	}
	input := inventory.MovementInput{
		ProductID:   productID,
		Action:      action,
		Quantity:    req.Quantity,
		UserID:      actorID,
		Description: strings.TrimSpace(req.Description),
	}
	if req.VariantID != nil && strings.TrimSpace(*req.VariantID) != "" {
		variantID, err := uuid.Parse(strings.TrimSpace(*req.VariantID))
		if err != nil {
			return inventory.MovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
		}
		input.VariantID = &variantID
	}
	return input, nil
}

// AdminInventoryRecord appends a manual stock movement.
func AdminInventoryRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "inventory")
			return
		}
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload recordMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.RecordMovement(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, inventory.NewEntryDTO(*entry))
	}
}

// AdminInventoryByProduct returns the ledger of one product with its ledger stock.
func AdminInventoryByProduct(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := svc.ListByProduct(r.Context(), productID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ledger)
	}
}

func AdminInventoryGet(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entryID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Get(r.Context(), entryID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventory.NewEntryDTO(*entry))
	}
}

// AdminInventoryReverse deactivates an entry and applies the inverse adjustment.
func AdminInventoryReverse(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		entryID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Reverse(r.Context(), entryID, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, inventory.NewEntryDTO(*entry))
	}
}

func AdminInventoryOverview(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter := inventory.StockFilterAll
		if raw := validators.OptionalQuery(r, "status"); raw != nil {
			filter = inventory.StockFilter(strings.ToLower(*raw))
			if !filter.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock filter").
					WithDetails(map[string]any{"status": *raw}))
				return
			}
		}

		overview, err := svc.Overview(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, overview)
	}
}
