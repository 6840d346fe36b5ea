// Package core holds the domain types shared by the ledger engine.
//
// This file contains amount parsing. Amounts are decimals, not floats:
// they come in as free text from the shell or a CSV cell and must be
// rejected before any store mutation happens when they are not numeric.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a monetary amount from user input.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted.
// Any non-numeric input fails with ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders an amount with two decimal places for display.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
