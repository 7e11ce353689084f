package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/api/middleware"
	"github.com/shipdesk/shipdesk-backend/api/responses"
	"github.com/shipdesk/shipdesk-backend/api/validators"
	"github.com/shipdesk/shipdesk-backend/internal/dispatch"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
)

// maxBulkSelection bounds how many ids one bulk request may carry.
const maxBulkSelection = 500

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type stageRequest struct {
	Stage string `json:"stage" validate:"required,oneof=verify assign fulfill"`
}

type bulkRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
}

// UpdateStatus writes a manual status change.
func UpdateStatus(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload statusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"field": "status"}))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), ownerID, orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// AdvanceStage moves an order along the pick/pack board.
func AdvanceStage(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stageRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stage, err := enums.ParseOrderStage(payload.Stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid stage"))
			return
		}

		order, err := svc.AdvanceStage(r.Context(), ownerID, orderID, stage)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Dispatch sends a single order to the carrier.
func Dispatch(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ref, err := svc.DispatchToCarrier(r.Context(), ownerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ref)
	}
}

// BulkDispatch sends every eligible selected order to the carrier. Per-item
// failures are reported in the result, not as an error response.
func BulkDispatch(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ids, err := decodeBulk(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.BulkDispatch(r.Context(), ownerID, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BulkDelete soft-deletes the selected orders.
func BulkDelete(svc dispatch.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ids, err := decodeBulk(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.BulkSoftDelete(r.Context(), ownerID, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func decodeBulk(r *http.Request) (uuid.UUID, []uuid.UUID, error) {
	ownerID, err := middleware.RequireOwner(r.Context())
	if err != nil {
		return uuid.Nil, nil, err
	}
	var payload bulkRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return uuid.Nil, nil, err
	}
	if len(payload.OrderIDs) > maxBulkSelection {
		return uuid.Nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "too many orders selected")
	}
	return ownerID, payload.OrderIDs, nil
}

func ownerAndOrder(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	ownerID, err := middleware.RequireOwner(r.Context())
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	orderID, err := validators.ParseURLUUID(r, "orderId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return ownerID, orderID, nil
}
