package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Order is a customer order ingested from a storefront or a file import.
// Rows are never hard-deleted; DeletedAt marks a soft delete.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ExternalID      *string             `gorm:"column:external_id"`
	OrderNumber     string              `gorm:"column:order_number;not null"`
	Platform        enums.Platform      `gorm:"column:platform;type:text;not null;default:'manual'"`
	CustomerName    *string             `gorm:"column:customer_name"`
	CustomerEmail   *string             `gorm:"column:customer_email"`
	CustomerPhone   *string             `gorm:"column:customer_phone"`
	TotalAmount     decimal.NullDecimal `gorm:"column:total_amount;type:numeric(12,2)"`
	Currency        string              `gorm:"column:currency;type:text;not null;default:'ILS'"`
	WeightGrams     *int                `gorm:"column:weight"`
	ShippingAddress types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Notes           *string             `gorm:"column:notes"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderDate       time.Time           `gorm:"column:order_date;not null"`
	DeletedAt       *time.Time          `gorm:"column:deleted_at"`
	DeletedBy       *uuid.UUID          `gorm:"column:deleted_by;type:uuid"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

// IsDeleted reports whether the order is soft-deleted.
func (o *Order) IsDeleted() bool {
	return o != nil && o.DeletedAt != nil
}
