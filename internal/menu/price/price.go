// Package price converts integer minor-unit prices to the comma-decimal
// strings shown on the menu, and back.
package price

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const Zero = "0,00"

var (
	ErrMalformed = errors.New("malformed price")

	pattern = regexp.MustCompile(`^-?\d+,\d{2}$`)
)

// Format renders minor units (cents) as "12,50". A nil price renders as "0,00".
// No currency symbol or thousands separator is added.
func Format(minor *int64) string {
	if minor == nil {
		return Zero
	}
	return FormatMinor(*minor)
}

func FormatMinor(minor int64) string {
	return FormatDecimal(decimal.NewFromInt(minor).Shift(-2))
}

// FormatDecimal renders an amount in major units with two decimals and a comma separator.
func FormatDecimal(amount decimal.Decimal) string {
	return strings.Replace(amount.StringFixed(2), ".", ",", 1)
}

// Parse reads a string produced by Format back into major units.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !pattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return decimal.NewFromString(strings.Replace(s, ",", ".", 1))
}

// ToMinor converts major units to minor units, rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
