package models

import (
	"fmt"
	"strings"
)

// SKU is the upper-cased stock keeping unit. Unique across the catalog.
type SKU string

const maxSKULength = 64

// NewSKU trims and upper-cases s. Letters, digits, '-' and '_' are allowed.
func NewSKU(s string) (SKU, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("sku is required")
	}
	if len(s) > maxSKULength {
		return "", fmt.Errorf("sku must not exceed %d characters", maxSKULength)
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return "", fmt.Errorf("sku contains invalid character %q", r)
		}
	}
	return SKU(s), nil
}

func (s SKU) String() string {
	return string(s)
}
