package models

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const euroSuffix = " €"

// FormatEuro renders an amount the way the API has always exposed it: "25.00 €".
func FormatEuro(d decimal.Decimal) string {
	return d.StringFixed(2) + euroSuffix
}

// ParseEuro accepts "25.00 €", "25.00€", "25,00 €" and bare numbers.
func ParseEuro(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.TrimSuffix(v, "€")
	v = strings.TrimSpace(v)
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d, nil
}

// ToMinorUnits converts euros to cents for the payment gateway.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromMinorUnits converts cents back to euros.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
