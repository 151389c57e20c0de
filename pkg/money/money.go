// Package money provides decimal monetary values for gateway amounts.
//
// Gateways report amounts in their native minor unit (e.g. cents for USD).
// Values are converted to decimals at the adapter boundary and stay decimals
// everywhere downstream.
// Invariants:
//   - Amounts are decimal values, never floating-point cents.
//   - Currency code must be valid ISO 4217 (3 uppercase letters).
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Code represents a currency code (e.g., "USD", "EUR").
type Code string

// Common currency codes.
const (
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
	JPY Code = "JPY"
	KWD Code = "KWD"
)

// IsValid checks if the currency code is valid.
func (c Code) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	return c[0] >= 'A' && c[0] <= 'Z' &&
		c[1] >= 'A' && c[1] <= 'Z' &&
		c[2] >= 'A' && c[2] <= 'Z'
}

// String returns the string representation of the currency code.
func (c Code) String() string {
	return string(c)
}

// Decimals returns the number of minor-unit decimal places for the currency.
func (c Code) Decimals() int32 {
	switch c {
	case JPY:
		return 0 // Japanese Yen has no decimal places
	case KWD:
		return 3
	default:
		return 2
	}
}

// Normalize uppercases a gateway-reported currency string into a Code.
// Gateways are inconsistent about casing ("usd" vs "USD").
func Normalize(s string) Code {
	return Code(strings.ToUpper(strings.TrimSpace(s)))
}

// FromMinorUnits converts a native minor-unit amount (e.g. cents) into a
// decimal value for the given currency.
func FromMinorUnits(units int64, c Code) decimal.Decimal {
	return decimal.New(units, -c.Decimals())
}
