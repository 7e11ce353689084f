package dispatch

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/shipdesk/shipdesk-backend/pkg/db/models"
	pkgerrors "github.com/shipdesk/shipdesk-backend/pkg/errors"
	"github.com/shipdesk/shipdesk-backend/pkg/hfd"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

const (
	defaultWeightGrams = 500
	defaultPieces      = 1
)

// recipient holds the fields the carrier refuses to ship without. The field
// tag names the order attribute reported back when a value is missing.
type recipient struct {
	Name   string `field:"customer_name" validate:"required"`
	Street string `field:"shipping_address.street" validate:"required"`
	City   string `field:"shipping_address.city" validate:"required"`
}

var payloadValidator = newPayloadValidator()

func newPayloadValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("field"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// buildShipmentRequest maps a canonical order onto the carrier request. Every
// missing required field is reported in a single validation error.
func buildShipmentRequest(order *models.Order, sender hfd.Party) (hfd.ShipmentRequest, error) {
	addr := order.ShippingAddress.Normalize()
	to := recipient{
		Name:   deref(order.CustomerName),
		Street: joinStreet(addr),
		City:   addr.City,
	}
	if missing := missingFields(to); len(missing) > 0 {
		return hfd.ShipmentRequest{}, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("order %s is missing required shipping fields: %s", order.OrderNumber, strings.Join(missing, ", "))).
			WithDetails(map[string]any{"missing_fields": missing})
	}

	weight := defaultWeightGrams
	if order.WeightGrams != nil && *order.WeightGrams > 0 {
		weight = *order.WeightGrams
	}
	return hfd.ShipmentRequest{
		Reference1: order.OrderNumber,
		Reference2: order.ID.String(),
		Sender:     sender,
		Recipient: hfd.Party{
			Name:    to.Name,
			Street:  to.Street,
			City:    to.City,
			Zip:     addr.PostalCode,
			Phone:   deref(order.CustomerPhone),
			Country: addr.Country,
		},
		WeightGrams: weight,
		Pieces:      defaultPieces,
		Remarks:     "order from " + order.Platform.String() + ": " + order.OrderNumber,
	}, nil
}

func missingFields(to recipient) []string {
	err := payloadValidator.Struct(to)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Field())
	}
	return out
}

func joinStreet(addr types.Address) string {
	if addr.Street2 == "" {
		return addr.Street
	}
	if addr.Street == "" {
		return addr.Street2
	}
	return addr.Street + ", " + addr.Street2
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return types.CleanField(*v)
}

func shipmentData(result *hfd.ShipmentResult) types.JSONMap {
	data := types.JSONMap{}
	for k, v := range result.Raw {
		data[k] = v
	}
	data["shipment_number"] = result.ShipmentNumber
	if result.TrackingNumber != "" {
		data["tracking_number"] = result.TrackingNumber
	}
	if result.ExistingShipmentNumber != "" {
		data["existing_shipment_number"] = result.ExistingShipmentNumber
	}
	return data
}

func itemLabel(order *models.Order) string {
	if order.OrderNumber != "" {
		return "#" + order.OrderNumber
	}
	return order.ID.String()
}
