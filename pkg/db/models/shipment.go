package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Shipment records a carrier shipment created for an order. An order may
// collect several rows across retried dispatches.
type Shipment struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null"`
	HFDShipmentNumber string               `gorm:"column:hfd_shipment_number;not null"`
	TrackingNumber    *string              `gorm:"column:tracking_number"`
	Status            enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'created'"`
	ShipmentData      types.JSONMap        `gorm:"column:shipment_data;type:jsonb;serializer:json"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (Shipment) TableName() string { return "shipments" }
