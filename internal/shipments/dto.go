package shipments

import (
	"time"

	"github.com/google/uuid"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
)

// ShipmentDTO is the shipment payload returned to clients.
type ShipmentDTO struct {
	ID                uuid.UUID            `json:"id"`
	OrderID           uuid.UUID            `json:"order_id"`
	HFDShipmentNumber string               `json:"hfd_shipment_number"`
	TrackingNumber    *string              `json:"tracking_number,omitempty"`
	Status            enums.ShipmentStatus `json:"status"`
	LabelURL          string               `json:"label_url,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	UpdatedAt         time.Time            `json:"updated_at"`
}

// ShipmentList wraps a page of shipments plus the next page cursor.
type ShipmentList struct {
	Shipments  []ShipmentDTO `json:"shipments"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (s *service) toDTO(m *models.Shipment) ShipmentDTO {
	return ShipmentDTO{
		ID:                m.ID,
		OrderID:           m.OrderID,
		HFDShipmentNumber: m.HFDShipmentNumber,
		TrackingNumber:    m.TrackingNumber,
		Status:            m.Status,
		LabelURL:          s.gateway.LabelURL(m.HFDShipmentNumber),
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
