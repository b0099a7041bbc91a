package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tradeflow-backend/api/middleware"
	"github.com/angelmondragon/tradeflow-backend/api/responses"
	"github.com/angelmondragon/tradeflow-backend/api/validators"
	"github.com/angelmondragon/tradeflow-backend/internal/fulfillers"
	pkgerrors "github.com/angelmondragon/tradeflow-backend/pkg/errors"
	"github.com/angelmondragon/tradeflow-backend/pkg/logger"
)

const (
	maxDisplayNameLength = 120
	maxPhoneLength       = 32
)

type registerFulfillerRequest struct {
	ID          string  `json:"id" validate:"required,uuid"`
	DisplayName string  `json:"display_name" validate:"required,notblank,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
}

// ListFulfillers returns the fulfiller directory. Manufacturers only see active entries.
func ListFulfillers(svc fulfillers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillers service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), caller)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// RegisterFulfiller adds a truck owner to the directory.
func RegisterFulfiller(svc fulfillers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillers service unavailable"))
			return
		}
		caller, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload registerFulfillerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := uuid.Parse(payload.ID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid fulfiller id"))
			return
		}

		var phone *string
		if payload.Phone != nil {
			if cleaned := validators.SanitizeString(*payload.Phone, maxPhoneLength); cleaned != "" {
				phone = &cleaned
			}
		}

		fulfiller, err := svc.Register(r.Context(), fulfillers.RegisterInput{
			Actor:       caller,
			ID:          id,
			DisplayName: validators.SanitizeString(payload.DisplayName, maxDisplayNameLength),
			Phone:       phone,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, fulfiller)
	}
}
