package enums

import (
	"fmt"
	"strings"
)

// Platform names the system an order was ingested from.
type Platform string

const (
	PlatformWix     Platform = "wix"
	PlatformShopify Platform = "shopify"
	PlatformManual  Platform = "manual"
)

var validPlatforms = []Platform{
	PlatformWix,
	PlatformShopify,
	PlatformManual,
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}

// IsValid reports whether the platform is recognized.
func (p Platform) IsValid() bool {
	for _, candidate := range validPlatforms {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePlatform converts a raw string into a Platform. Blank input maps to manual.
func ParsePlatform(value string) (Platform, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return PlatformManual, nil
	}
	for _, candidate := range validPlatforms {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform %q", value)
}
