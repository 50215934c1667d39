// Package core provides money parsing and rounding utilities.
//
// Amounts are carried as float64 in the domain model so that shares split
// across participants keep their full precision until the balance engine
// rounds them. Rounding itself goes through decimal arithmetic.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Round2 rounds x to two decimal places, half away from zero.
//
// Examples:
//
//	Round2(2.345)  -> 2.35
//	Round2(-2.345) -> -2.35
//	Round2(33.333) -> 33.33
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// ParseAmount converts user-entered text into a positive amount rounded to
// two decimals. It accepts both dot (12.34) and comma (12,34) separators.
// Signs, exponents, blanks and zero are rejected with ErrInvalidAmount.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	if s == "." {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// FormatAmount renders an amount with exactly two decimals.
func FormatAmount(x float64) string {
	return decimal.NewFromFloat(Round2(x)).StringFixed(2)
}
