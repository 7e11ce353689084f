package types

import (
	"strings"
)

// Address is the canonical shipping address every ingestion path produces.
// Upstream platforms disagree on shape; the constructors below are the only
// place those differences are known.
type Address struct {
	Street     string `json:"street"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// IsZero reports whether no field carries data.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Normalize trims whitespace and stray quote characters left behind by
// spreadsheet exports.
func (a Address) Normalize() Address {
	return Address{
		Street:     CleanField(a.Street),
		Street2:    CleanField(a.Street2),
		City:       CleanField(a.City),
		PostalCode: CleanField(a.PostalCode),
		Country:    CleanField(a.Country),
	}
}

// AddressFromFlat reads the loose key/value shape produced by CSV rows,
// manual entry and legacy rows.
func AddressFromFlat(m JSONMap) Address {
	if m == nil {
		return Address{}
	}
	return Address{
		Street:     m.String("street", "address", "addressLine1", "address_line_1", "addressLine", "address1", "line1"),
		Street2:    m.String("street2", "addressLine2", "address_line_2", "address2", "line2"),
		City:       m.String("city"),
		PostalCode: m.String("postal_code", "postalCode", "zipCode", "zip_code", "zip"),
		Country:    m.String("country", "country_code", "countryCode"),
	}.Normalize()
}

// AddressFromWix reads a Wix order payload. Both the legacy
// shippingInfo.shipmentDetails shape and the eCommerce
// shippingInfo.logistics.shippingDestination shape are accepted.
func AddressFromWix(order JSONMap) Address {
	for _, path := range []string{
		"shippingInfo.logistics.shippingDestination.address",
		"shippingInfo.shipmentDetails.address",
		"recipientInfo.address",
		"billingInfo.address",
	} {
		if addr := order.Object(path); addr != nil {
			out := Address{
				Street:     addr.String("addressLine1", "addressLine"),
				Street2:    addr.String("addressLine2"),
				City:       addr.String("city"),
				PostalCode: addr.String("postalCode", "zipCode"),
				Country:    addr.String("country"),
			}
			if out.Street == "" {
				if name := addr.String("streetAddress.name"); name != "" {
					out.Street = strings.TrimSpace(name + " " + addr.String("streetAddress.number"))
				}
			}
			out = out.Normalize()
			if !out.IsZero() {
				return out
			}
		}
	}
	return Address{}
}

// AddressFromShopify reads the shipping_address object of a Shopify order.
func AddressFromShopify(order JSONMap) Address {
	addr := order.Object("shipping_address")
	if addr == nil {
		return Address{}
	}
	return Address{
		Street:     addr.String("address1"),
		Street2:    addr.String("address2"),
		City:       addr.String("city"),
		PostalCode: addr.String("zip"),
		Country:    addr.String("country_code", "country"),
	}.Normalize()
}

// CleanField trims whitespace and surrounding quote characters.
func CleanField(v string) string {
	v = strings.TrimSpace(v)
	v = strings.Trim(v, `"'`)
	return strings.TrimSpace(v)
}
