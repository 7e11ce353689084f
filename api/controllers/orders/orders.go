package orders

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk-backend/api/middleware"
	"github.com/shipdesk/shipdesk-backend/api/responses"
	"github.com/shipdesk/shipdesk-backend/api/validators"
	internalorders "github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/logger"
	"github.com/shipdesk/shipdesk-backend/pkg/pagination"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const maxQueryLength = 128

type addressPayload struct {
	Street     string `json:"street" validate:"max=256"`
	Street2    string `json:"street2" validate:"max=256"`
	City       string `json:"city" validate:"max=128"`
	PostalCode string `json:"postal_code" validate:"max=16"`
	Country    string `json:"country" validate:"max=64"`
}

func (a *addressPayload) toAddress() *types.Address {
	if a == nil {
		return nil
	}
	return &types.Address{
		Street:     a.Street,
		Street2:    a.Street2,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type createOrderRequest struct {
	OrderNumber     string           `json:"order_number" validate:"required,max=64"`
	ExternalID      *string          `json:"external_id" validate:"omitempty,max=128"`
	CustomerName    *string          `json:"customer_name" validate:"omitempty,max=256"`
	CustomerEmail   *string          `json:"customer_email" validate:"omitempty,email,max=256"`
	CustomerPhone   *string          `json:"customer_phone" validate:"omitempty,max=32"`
	TotalAmount     *decimal.Decimal `json:"total_amount"`
	Currency        string           `json:"currency" validate:"omitempty,len=3"`
	WeightGrams     *int             `json:"weight" validate:"omitempty,min=1"`
	ShippingAddress *addressPayload  `json:"shipping_address"`
	Notes           *string          `json:"notes" validate:"omitempty,max=2000"`
	OrderDate       *time.Time       `json:"order_date"`
}

type updateOrderRequest struct {
	CustomerName    *string         `json:"customer_name" validate:"omitempty,max=256"`
	CustomerEmail   *string         `json:"customer_email" validate:"omitempty,email,max=256"`
	CustomerPhone   *string         `json:"customer_phone" validate:"omitempty,max=32"`
	WeightGrams     *int            `json:"weight" validate:"omitempty,min=1"`
	ShippingAddress *addressPayload `json:"shipping_address"`
	Notes           *string         `json:"notes" validate:"omitempty,max=2000"`
}

// List returns a page of the owner's orders, filtered by status and a free
// text query over customer name, email and order number.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		list, err := svc.List(r.Context(), ownerID, filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func buildFilters(r *http.Request) (internalorders.ListFilters, error) {
	var filters internalorders.ListFilters
	query := r.URL.Query()
	if raw := strings.TrimSpace(query.Get("status")); raw != "" && !strings.EqualFold(raw, "all") {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		filters.Status = &status
	}
	filters.Query = validators.SanitizeString(query.Get("q"), maxQueryLength)
	return filters, nil
}

// ListDeleted returns the owner's soft-deleted orders.
func ListDeleted(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListDeleted(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Stats returns order counts per status.
func Stats(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		stats, err := svc.Stats(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// Detail returns one order.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), ownerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Create saves a manually entered order as pending.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, err := middleware.RequireOwner(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.OrderInput{
			ExternalID:    validators.SanitizeOptional(payload.ExternalID, 128),
			OrderNumber:   validators.SanitizeString(payload.OrderNumber, 64),
			Platform:      enums.PlatformManual,
			CustomerName:  validators.SanitizeOptional(payload.CustomerName, 256),
			CustomerEmail: validators.SanitizeOptional(payload.CustomerEmail, 256),
			CustomerPhone: validators.SanitizeOptional(payload.CustomerPhone, 32),
			TotalAmount:   payload.TotalAmount,
			Currency:      payload.Currency,
			WeightGrams:   payload.WeightGrams,
			Notes:         validators.SanitizeOptional(payload.Notes, 2000),
			OrderDate:     payload.OrderDate,
			Source:        "manual",
		}
		if addr := payload.ShippingAddress.toAddress(); addr != nil {
			input.ShippingAddress = *addr
		}

		order, err := svc.Create(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Update patches the customer and shipping fields of an order.
func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Update(r.Context(), ownerID, orderID, internalorders.UpdateInput{
			CustomerName:    sanitizeEditable(payload.CustomerName, 256),
			CustomerEmail:   sanitizeEditable(payload.CustomerEmail, 256),
			CustomerPhone:   sanitizeEditable(payload.CustomerPhone, 32),
			WeightGrams:     payload.WeightGrams,
			Notes:           sanitizeEditable(payload.Notes, 2000),
			ShippingAddress: payload.ShippingAddress.toAddress(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// sanitizeEditable trims a patch field. An explicit empty string survives
// so the field can be cleared.
func sanitizeEditable(v *string, maxLen int) *string {
	if v == nil {
		return nil
	}
	out := validators.SanitizeString(*v, maxLen)
	return &out
}

// Logs returns the activity history of an order, newest first.
func Logs(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		logs, err := svc.Logs(r.Context(), ownerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, logs)
	}
}

// Delete soft-deletes an order.
func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.SoftDelete(r.Context(), ownerID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"id": orderID, "deleted": true})
	}
}

// Restore brings a soft-deleted order back.
func Restore(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, orderID, err := ownerAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Restore(r.Context(), ownerID, orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.Get(r.Context(), ownerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
