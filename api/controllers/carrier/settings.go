package carrier

import (
	"net/http"

	"github.com/shipdesk/shipdesk-backend/api/middleware"
	"github.com/shipdesk/shipdesk-backend/api/responses"
	"github.com/shipdesk/shipdesk-backend/api/validators"
	internalcarrier "github.com/shipdesk/shipdesk-backend/internal/carrier"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
)

// GetSettings returns the owner's carrier settings without the token.
func GetSettings(svc internalcarrier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carrier service unavailable"))
			return
		}
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settings, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// PutSettings creates or replaces the owner's carrier settings.
func PutSettings(svc internalcarrier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carrier service unavailable"))
			return
		}
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload internalcarrier.UpsertInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload.ClientNumber = validators.SanitizeString(payload.ClientNumber, 64)
		payload.ShipmentTypeCode = validators.SanitizeString(payload.ShipmentTypeCode, 32)
		payload.CargoTypeCode = validators.SanitizeString(payload.CargoTypeCode, 32)

		settings, err := svc.Upsert(r.Context(), ownerID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

// TestSettings checks the stored credentials against the carrier.
func TestSettings(svc internalcarrier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "carrier service unavailable"))
			return
		}
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.TestConnection(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
