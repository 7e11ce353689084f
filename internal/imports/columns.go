package imports

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/shipdesk/shipdesk-backend/internal/orders"
	"github.com/shipdesk/shipdesk-backend/pkg/enums"
	"github.com/shipdesk/shipdesk-backend/pkg/types"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
	"02.01.2006",
}

// first returns the first non-empty value among the column aliases.
func first(row map[string]string, names ...string) string {
	for _, name := range names {
		if v := types.CleanField(row[name]); v != "" {
			return v
		}
	}
	return ""
}

func optionalValue(row map[string]string, names ...string) *string {
	v := first(row, names...)
	if v == "" {
		return nil
	}
	return &v
}

// rowToInput maps one spreadsheet row onto an order. Every unparseable
// column is reported, not just the first.
func rowToInput(row map[string]string) (orders.OrderInput, error) {
	number := first(row, "order_number", "order_no", "order")
	if number == "" {
		return orders.OrderInput{}, fmt.Errorf("missing order_number")
	}
	externalID := first(row, "external_id")
	if externalID == "" {
		externalID = number
	}

	input := orders.OrderInput{
		ExternalID:    &externalID,
		OrderNumber:   number,
		CustomerName:  optionalValue(row, "customer_name", "name"),
		CustomerEmail: optionalValue(row, "customer_email", "email"),
		CustomerPhone: optionalValue(row, "customer_phone", "phone"),
		Currency:      first(row, "currency"),
		Notes:         optionalValue(row, "notes", "note"),
		Source:        "import",
	}

	var errs error
	if raw := first(row, "platform"); raw != "" {
		platform, err := enums.ParsePlatform(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("platform must be manual, wix or shopify"))
		}
		input.Platform = platform
	}
	if raw := first(row, "total_amount", "total", "amount"); raw != "" {
		amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("total_amount must be a number"))
		} else {
			input.TotalAmount = &amount
		}
	}
	if raw := first(row, "weight", "weight_kg"); raw != "" {
		grams, err := parseWeightKG(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			input.WeightGrams = &grams
		}
	}
	if raw := first(row, "order_date", "date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else {
			input.OrderDate = &date
		}
	}
	addr, err := rowAddress(row)
	errs = multierr.Append(errs, err)
	input.ShippingAddress = addr

	if errs != nil {
		return orders.OrderInput{}, errs
	}
	return input, nil
}

// parseWeightKG reads a weight in kilograms and returns grams.
func parseWeightKG(raw string) (int, error) {
	kg, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil || kg <= 0 {
		return 0, fmt.Errorf("weight must be a positive number")
	}
	return int(math.Round(kg * 1000)), nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("order_date %q is not a recognized date", raw)
}

// rowAddress prefers a JSON shipping_address column and falls back to flat
// address columns.
func rowAddress(row map[string]string) (types.Address, error) {
	if raw := strings.TrimSpace(row["shipping_address"]); raw != "" {
		if strings.HasPrefix(raw, "{") {
			m, err := types.ParseJSONMap(raw)
			if err != nil {
				return types.Address{}, fmt.Errorf("shipping_address is not valid JSON")
			}
			return types.AddressFromFlat(m), nil
		}
		row = withDefault(row, "street", raw)
	}
	flat := make(types.JSONMap, len(row))
	for k, v := range row {
		flat[k] = v
	}
	return types.AddressFromFlat(flat), nil
}

func withDefault(row map[string]string, key, value string) map[string]string {
	if row[key] != "" {
		return row
	}
	out := make(map[string]string, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	out[key] = value
	return out
}
