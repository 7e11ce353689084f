package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks where an order sits in the fulfilment lifecycle.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusProcessed OrderStatus = "processed"
	OrderStatusInProcess OrderStatus = "in_process"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusError     OrderStatus = "error"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessed,
	OrderStatusInProcess,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusError,
}

// OrderStatuses returns every known status in lifecycle order.
func OrderStatuses() []OrderStatus {
	out := make([]OrderStatus, len(validOrderStatuses))
	copy(out, validOrderStatuses)
	return out
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsDispatchable reports whether an order in this status may be sent to the carrier.
func (s OrderStatus) IsDispatchable() bool {
	return s == OrderStatusPending || s == OrderStatusProcessed
}

// IsTerminal reports whether no further transitions are defined.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
