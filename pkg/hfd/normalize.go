package hfd

import (
	"encoding/json"
	"strconv"
	"strings"
)

// field lists every spelling the carrier has been seen to use for a value.
// Responses mix snake_case and camelCase between endpoints and releases.
type field []string

var (
	fShipmentNumber = field{"shipment_number", "shipmentNumber"}
	fRandNumber     = field{"rand_number", "randNumber"}
	fReference1     = field{"reference_number_1", "referenceNumber1"}
	fReference2     = field{"reference_number_2", "referenceNumber2"}
	fDeliveryLine   = field{"delivery_line", "deliveryLine"}
	fDeliveryArea   = field{"delivery_area", "deliveryArea"}
	fExisting       = field{"existing_shipment_number", "existingShipmentNumber"}
	fSortingCode    = field{"sorting_code", "sortingCode"}
	fPickupCode     = field{"pickup_code", "pickUpCode", "pickupCode"}
	fErrorCode      = field{"error_code", "errorCode"}
	fErrorMessage   = field{"error_message", "errorMessage"}
	fStatus         = field{"shipment_status", "shipmentStatus", "status"}
	fStatusDesc     = field{"status_description", "statusDescription", "description"}
)

func decodeBody(body []byte) map[string]any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return map[string]any{}
	}
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil || out == nil {
		return map[string]any{"message": trimmed}
	}
	return out
}

func (f field) str(raw map[string]any) string {
	for _, key := range f {
		if v, ok := raw[key]; ok {
			if s := scalar(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func scalar(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// isZeroNumber treats "", "0" and "0.0" as absent. The carrier reports a
// failed create with shipment number 0.
func isZeroNumber(s string) bool {
	if s == "" {
		return true
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && f == 0
}

// carrierFault extracts a carrier-reported failure from an otherwise
// successful HTTP response. Zero error codes are treated as success.
func carrierFault(raw map[string]any) (code, message string, failed bool) {
	code = fErrorCode.str(raw)
	message = fErrorMessage.str(raw)
	if isZeroNumber(code) {
		code = ""
	}
	if code != "" || message != "" {
		return code, message, true
	}
	if success, ok := raw["success"].(bool); ok && !success {
		return "", scalar(raw["message"]), true
	}
	if msg := scalar(raw["error"]); msg != "" {
		return "", msg, true
	}
	return "", "", false
}

func normalizeShipment(raw map[string]any) ShipmentResult {
	res := ShipmentResult{
		ShipmentNumber:         fShipmentNumber.str(raw),
		TrackingNumber:         fRandNumber.str(raw),
		Reference1:             fReference1.str(raw),
		Reference2:             fReference2.str(raw),
		DeliveryLine:           fDeliveryLine.str(raw),
		DeliveryArea:           fDeliveryArea.str(raw),
		ExistingShipmentNumber: fExisting.str(raw),
		SortingCode:            fSortingCode.str(raw),
		PickupCode:             fPickupCode.str(raw),
		Raw:                    raw,
	}
	if isZeroNumber(res.ShipmentNumber) {
		res.ShipmentNumber = ""
	}
	if isZeroNumber(res.ExistingShipmentNumber) {
		res.ExistingShipmentNumber = ""
	}
	return res
}

func normalizeStatus(raw map[string]any, fallbackNumber string) StatusResult {
	number := fShipmentNumber.str(raw)
	if number == "" {
		number = fallbackNumber
	}
	return StatusResult{
		ShipmentNumber: number,
		Status:         fStatus.str(raw),
		Description:    fStatusDesc.str(raw),
		Raw:            raw,
	}
}
