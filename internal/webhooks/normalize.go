package webhooks

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

// Normalizer maps one platform's order payload onto the canonical order.
type Normalizer func(body types.JSONMap) (orders.OrderInput, error)

var normalizers = map[enums.Platform]Normalizer{
	enums.PlatformWix:     NormalizeWix,
	enums.PlatformShopify: NormalizeShopify,
}

// wixOrder unwraps the envelopes Wix uses around the order object.
func wixOrder(body types.JSONMap) types.JSONMap {
	for _, path := range []string{"data.order", "order", "entity", "data"} {
		if obj := body.Object(path); obj != nil && obj.String("id", "_id") != "" {
			return obj
		}
	}
	return body
}

// NormalizeWix reads a Wix order-created event. Both the legacy stores shape
// (customerInfo, totals) and the eCommerce shape (buyerInfo, priceSummary)
// are accepted.
func NormalizeWix(body types.JSONMap) (orders.OrderInput, error) {
	order := wixOrder(body)
	id := order.String("id", "_id")
	number := order.String("number", "orderNumber")
	if number == "" {
		number = id
	}
	if number == "" {
		return orders.OrderInput{}, fmt.Errorf("wix order has no id or number")
	}

	name := joinName(
		order.String("shippingInfo.shipmentDetails.firstName", "recipientInfo.contactDetails.firstName", "buyerInfo.firstName", "customerInfo.firstName"),
		order.String("shippingInfo.shipmentDetails.lastName", "recipientInfo.contactDetails.lastName", "buyerInfo.lastName", "customerInfo.lastName"),
	)
	input := orders.OrderInput{
		ExternalID:      optional(id),
		OrderNumber:     number,
		Platform:        enums.PlatformWix,
		CustomerName:    optional(name),
		CustomerEmail:   optional(order.String("buyerInfo.email", "customerInfo.email", "shippingInfo.shipmentDetails.email")),
		CustomerPhone:   optional(order.String("shippingInfo.shipmentDetails.phone", "recipientInfo.contactDetails.phone", "buyerInfo.phone", "customerInfo.phone")),
		Currency:        order.String("currency", "priceSummary.total.currency"),
		ShippingAddress: types.AddressFromWix(order),
		Source:          "webhook",
	}
	if amount, ok := decimalAt(order, "priceSummary.total.amount", "totals.total"); ok {
		input.TotalAmount = &amount
	}
	if grams, ok := intAt(order, "totals.weight", "weight"); ok {
		input.WeightGrams = &grams
	}
	if date, ok := timeAt(order, "createdDate", "dateCreated", "_createdDate"); ok {
		input.OrderDate = &date
	}
	return input, nil
}

// NormalizeShopify reads a Shopify orders/create payload.
func NormalizeShopify(body types.JSONMap) (orders.OrderInput, error) {
	id := body.String("id", "admin_graphql_api_id")
	number := strings.TrimPrefix(body.String("name", "order_number"), "#")
	if number == "" {
		number = id
	}
	if number == "" {
		return orders.OrderInput{}, fmt.Errorf("shopify order has no id or number")
	}

	name := body.String("shipping_address.name")
	if name == "" {
		name = joinName(
			body.String("shipping_address.first_name", "customer.first_name"),
			body.String("shipping_address.last_name", "customer.last_name"),
		)
	}
	input := orders.OrderInput{
		ExternalID:      optional(id),
		OrderNumber:     number,
		Platform:        enums.PlatformShopify,
		CustomerName:    optional(name),
		CustomerEmail:   optional(body.String("email", "contact_email", "customer.email")),
		CustomerPhone:   optional(body.String("shipping_address.phone", "phone", "customer.phone")),
		Currency:        body.String("currency", "presentment_currency"),
		ShippingAddress: types.AddressFromShopify(body),
		Notes:           optional(body.String("note")),
		Source:          "webhook",
	}
	if amount, ok := decimalAt(body, "total_price", "current_total_price"); ok {
		input.TotalAmount = &amount
	}
	if grams, ok := intAt(body, "total_weight"); ok {
		input.WeightGrams = &grams
	}
	if date, ok := timeAt(body, "created_at", "processed_at"); ok {
		input.OrderDate = &date
	}
	return input, nil
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

func optional(v string) *string {
	v = types.CleanField(v)
	if v == "" {
		return nil
	}
	return &v
}

func decimalAt(m types.JSONMap, paths ...string) (decimal.Decimal, bool) {
	raw := m.String(paths...)
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func intAt(m types.JSONMap, paths ...string) (int, bool) {
	raw := m.String(paths...)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return int(math.Round(f)), true
}

func timeAt(m types.JSONMap, paths ...string) (time.Time, bool) {
	raw := m.String(paths...)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
