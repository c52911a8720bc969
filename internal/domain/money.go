package domain

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an amount in minor currency units (cents). All arithmetic on prices, subtotals and
// totals happens on this integer representation; decimals only appear at the edges.
type Money int64

const minorUnitExponent = 2

var (
	// ErrInvalidMoney reports a value that cannot be represented in minor units without loss.
	ErrInvalidMoney = errors.New("domain: invalid money amount")
	// ErrAmountOutOfRange reports arithmetic whose result does not fit in Money.
	ErrAmountOutOfRange = errors.New("domain: amount out of range")

	hundred     = decimal.NewFromInt(100)
	maxMinorDec = decimal.NewFromInt(math.MaxInt64)
	minMinorDec = decimal.NewFromInt(math.MinInt64)
)

// ParseMoney converts a decimal string such as "19.99" into minor units. More than two
// fractional digits are rejected instead of rounded.
func ParseMoney(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMoney)
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMoney, value)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts a decimal major-unit amount into minor units.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	scaled := d.Mul(hundred)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d fractional digits", ErrInvalidMoney, d.String(), minorUnitExponent)
	}
	if scaled.GreaterThan(maxMinorDec) || scaled.LessThan(minMinorDec) {
		return 0, fmt.Errorf("%w: %s exceeds the representable range", ErrInvalidMoney, d.String())
	}
	return Money(scaled.IntPart()), nil
}

// MustMoney parses value and panics on failure. Intended for fixtures and sample data.
func MustMoney(value string) Money {
	m, err := ParseMoney(value)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorUnitExponent)
}

// MinorUnits returns the raw cent count, as expected by payment processors.
func (m Money) MinorUnits() int64 {
	return int64(m)
}

// Times multiplies the amount by a non-negative quantity, failing with ErrAmountOutOfRange
// instead of wrapping.
func (m Money) Times(quantity int) (Money, error) {
	if quantity < 0 || m < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrAmountOutOfRange)
	}
	if quantity != 0 && m > Money(math.MaxInt64)/Money(quantity) {
		return 0, fmt.Errorf("%w: %d x %d", ErrAmountOutOfRange, int64(m), quantity)
	}
	return m * Money(quantity), nil
}

// Plus adds two non-negative amounts, failing with ErrAmountOutOfRange instead of wrapping.
func (m Money) Plus(other Money) (Money, error) {
	if m < 0 || other < 0 {
		return 0, fmt.Errorf("%w: negative operand", ErrAmountOutOfRange)
	}
	if m > Money(math.MaxInt64)-other {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOutOfRange, int64(m), int64(other))
	}
	return m + other, nil
}

// String renders the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnitExponent)
}

// MarshalJSON encodes the amount as a JSON number with two fractional digits.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if bytes.Equal(raw, []byte("null")) {
		*m = 0
		return nil
	}
	raw = bytes.Trim(raw, `"`)
	parsed, err := ParseMoney(string(raw))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
