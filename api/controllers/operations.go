package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/operations"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func AdminOperationsList(svc operations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "operations")
			return
		}

		ops, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ops)
	}
}

type setOperationRequest struct {
	Value string `json:"value" validate:"required,max=1024"`
}

// AdminOperationsSet upserts a runtime setting such as a delivery fee.
func AdminOperationsSet(svc operations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "operations")
			return
		}

		var payload setOperationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		op, err := svc.Set(r.Context(), strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "key"))), strings.TrimSpace(payload.Value))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, op)
	}
}
