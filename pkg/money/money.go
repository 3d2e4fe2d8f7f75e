// Package money holds the cent arithmetic shared by the cart pricing rules.
// Amounts are integer cents everywhere; decimal values only appear for rates
// and at the display boundary.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Format renders cents as a fixed two-decimal amount, e.g. 7779 -> "77.79".
func Format(cents int64) string {
	return Dollars(cents).StringFixed(2)
}

// FormatCurrency renders cents with a symbol for dollar currencies and an
// ISO suffix otherwise: "$77.79", "77.79 EUR".
func FormatCurrency(cents int64, currency string) string {
	switch currency {
	case "", "USD", "CAD", "AUD", "NZD":
		if cents < 0 {
			return "-$" + Format(-cents)
		}
		return "$" + Format(cents)
	default:
		return Format(cents) + " " + currency
	}
}

// Dollars converts cents to an exact decimal amount.
func Dollars(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// PercentOf returns pct percent of cents, rounded half away from zero.
func PercentOf(cents int64, pct int) int64 {
	return decimal.NewFromInt(cents).
		Mul(decimal.NewFromInt(int64(pct))).
		Div(hundred).
		Round(0).
		IntPart()
}

// ApplyRate returns cents multiplied by rate, rounded half away from zero.
func ApplyRate(cents int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(cents).Mul(rate).Round(0).IntPart()
}

// ParseRate parses a fractional rate such as "0.13" and checks it lies in [0, 1].
func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse rate %q: %w", s, err)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("rate %s out of range [0, 1]", r.String())
	}
	return r, nil
}

// Rate is a fractional rate in [0, 1]. It decodes from text via ParseRate, so
// env and JSON loaders reject out-of-range values.
type Rate struct {
	decimal.Decimal
}

// MustRate parses s and panics on error. For constants and tests.
func MustRate(s string) Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return Rate{Decimal: r}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Rate) UnmarshalText(text []byte) error {
	d, err := ParseRate(string(text))
	if err != nil {
		return err
	}
	r.Decimal = d
	return nil
}
