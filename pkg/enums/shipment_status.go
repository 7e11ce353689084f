package enums

import (
	"fmt"
	"strings"
)

// ShipmentStatus tracks a carrier shipment after creation.
type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "created"
	ShipmentStatusSentToHFD ShipmentStatus = "sent_to_hfd"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusFailed    ShipmentStatus = "failed"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusCreated,
	ShipmentStatusSentToHFD,
	ShipmentStatusInTransit,
	ShipmentStatusDelivered,
	ShipmentStatusFailed,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the carrier will not move the shipment again.
func (s ShipmentStatus) IsTerminal() bool {
	return s == ShipmentStatusDelivered || s == ShipmentStatusFailed
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
