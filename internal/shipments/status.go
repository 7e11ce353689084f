package shipments

import (
	"strings"

	"github.com/shipdesk/shipdesk-backend/pkg/enums"
)

var carrierStatusKeywords = []struct {
	status   enums.ShipmentStatus
	keywords []string
}{
	{enums.ShipmentStatusFailed, []string{"fail", "cancel", "return", "undeliver", "not delivered", "בוטל", "הוחזר"}},
	{enums.ShipmentStatusDelivered, []string{"delivered", "נמסר"}},
	{enums.ShipmentStatusInTransit, []string{"transit", "picked", "out_for_delivery", "collected", "בדרך", "נאסף"}},
	{enums.ShipmentStatusSentToHFD, []string{"sent", "received", "registered", "נקלט"}},
	{enums.ShipmentStatusCreated, []string{"created", "new"}},
}

// mapCarrierStatus folds the carrier's free-text status into the shipment
// lifecycle. Unrecognized text keeps the current status, and a terminal
// status never changes.
func mapCarrierStatus(raw string, current enums.ShipmentStatus) enums.ShipmentStatus {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || current.IsTerminal() {
		return current
	}
	if parsed, err := enums.ParseShipmentStatus(text); err == nil {
		return parsed
	}
	for _, candidate := range carrierStatusKeywords {
		for _, kw := range candidate.keywords {
			if strings.Contains(text, kw) {
				return candidate.status
			}
		}
	}
	return current
}
