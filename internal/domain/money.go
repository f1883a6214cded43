package domain

import (
	"github.com/shopspring/decimal"

	"campus-market/internal/errors"
)

// Cents is an amount of money in minor currency units (fen).
type Cents int64

// MaxPrice caps listing prices at 99,999,999.99.
const MaxPrice Cents = 9_999_999_999

var hundred = decimal.NewFromInt(100)

// ParseCents converts a major-unit decimal string such as "12.5" into cents.
// More than two fractional digits, negative values and values above MaxPrice
// are rejected rather than rounded.
func ParseCents(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, errors.ErrInvalidPrice.WithDetails("invalid amount format")
	}
	return CentsFromDecimal(d)
}

// CentsFromDecimal converts a major-unit decimal into cents.
func CentsFromDecimal(d decimal.Decimal) (Cents, error) {
	if d.IsNegative() {
		return 0, errors.ErrInvalidPrice.WithDetails("amount must not be negative")
	}

	minor := d.Mul(hundred)
	if !minor.IsInteger() {
		return 0, errors.ErrInvalidPrice.WithDetails("amount has more than two decimal places")
	}
	if minor.GreaterThan(decimal.NewFromInt(int64(MaxPrice))) {
		return 0, errors.ErrInvalidPrice.WithDetails("amount exceeds maximum limit")
	}

	return Cents(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount in major units with two decimals, e.g. "5.00".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}
