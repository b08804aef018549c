// Package core holds the domain model and the pure financial calculations:
// amortization, payment splitting, budget periods, transfer settlement and
// calendar recurrence.
//
// This file contains the decimal helpers every amount goes through.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	USD Currency = "USD"
	KES Currency = "KES"
)

type Currency string

func (c Currency) Valid() bool {
	return c == USD || c == KES
}

var hundred = decimal.NewFromInt(100)

// ParseAmount parses a decimal amount accepting either '.' or ',' as the
// separator. The result is rounded to cents.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34
//	ParseAmount("12,345") -> 12.34 (banker's rounding)
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, Invalid("amount", "amount is required")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Invalid("amount", "amount must be a decimal number")
	}
	return Round2(d), nil
}

// Round2 rounds to two decimal places with banker's rounding.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(2)
}

// Percentage returns round(part/whole*100, 2), or zero when whole is zero.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return Round2(part.Div(whole).Mul(hundred))
}

// powRound raises base to a non-negative integer power, keeping the
// intermediate precision bounded.
func powRound(base decimal.Decimal, n int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(28)
		}
		base = base.Mul(base).Round(28)
		n >>= 1
	}
	return result
}
