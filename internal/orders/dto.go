package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// ListFilters describe the inputs supported by the orders list.
type ListFilters struct {
	Status *enums.OrderStatus
	Query  string
}

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              uuid.UUID         `json:"id"`
	ExternalID      *string           `json:"external_id,omitempty"`
	OrderNumber     string            `json:"order_number"`
	Platform        enums.Platform    `json:"platform"`
	CustomerName    *string           `json:"customer_name,omitempty"`
	CustomerEmail   *string           `json:"customer_email,omitempty"`
	CustomerPhone   *string           `json:"customer_phone,omitempty"`
	TotalAmount     *decimal.Decimal  `json:"total_amount,omitempty"`
	Currency        string            `json:"currency"`
	WeightGrams     *int              `json:"weight,omitempty"`
	ShippingAddress types.Address     `json:"shipping_address"`
	Notes           *string           `json:"notes,omitempty"`
	Status          enums.OrderStatus `json:"status"`
	OrderDate       time.Time         `json:"order_date"`
	DeletedAt       *time.Time        `json:"deleted_at,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// NewOrderDTO builds a DTO from the persisted model.
func NewOrderDTO(o *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              o.ID,
		ExternalID:      o.ExternalID,
		OrderNumber:     o.OrderNumber,
		Platform:        o.Platform,
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CustomerPhone:   o.CustomerPhone,
		Currency:        o.Currency,
		WeightGrams:     o.WeightGrams,
		ShippingAddress: o.ShippingAddress,
		Notes:           o.Notes,
		Status:          o.Status,
		OrderDate:       o.OrderDate,
		DeletedAt:       o.DeletedAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if o.TotalAmount.Valid {
		amount := o.TotalAmount.Decimal
		dto.TotalAmount = &amount
	}
	return dto
}

func newOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewOrderDTO(&rows[i]))
	}
	return out
}

// OrderList wraps a page of orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// LogDTO is one activity log entry.
type LogDTO struct {
	ID           uuid.UUID          `json:"id"`
	OrderID      uuid.UUID          `json:"order_id"`
	ActivityType enums.ActivityType `json:"activity_type"`
	Details      types.JSONMap      `json:"details"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Stats counts the owner's live orders per status. Every status is present.
type Stats struct {
	Total    int64                       `json:"total"`
	ByStatus map[enums.OrderStatus]int64 `json:"by_status"`
}

// OrderInput is the canonical shape every ingestion path (manual entry,
// file import, platform webhook) produces before an order is saved.
type OrderInput struct {
	ExternalID      *string
	OrderNumber     string
	Platform        enums.Platform
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	TotalAmount     *decimal.Decimal
	Currency        string
	WeightGrams     *int
	ShippingAddress types.Address
	Notes           *string
	OrderDate       *time.Time
	// Source is recorded in the order_created log entry (manual, import, webhook).
	Source string
}

// UpdateInput carries the editable order fields. Nil fields are left unchanged.
type UpdateInput struct {
	CustomerName    *string
	CustomerEmail   *string
	CustomerPhone   *string
	WeightGrams     *int
	Notes           *string
	ShippingAddress *types.Address
}
