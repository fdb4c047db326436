// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and formatting them for display.
package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is the display unit appended to formatted amounts.
const Currency = "USD"

// ErrMalformedAmount is returned when an amount string is not a decimal number.
var ErrMalformedAmount = errors.New("malformed amount")

// ParseAmount converts a user-supplied decimal string to an exact amount.
//
// Both dot (12.34) and comma (12,34) decimal separators are accepted. Zero is a
// valid amount; negative values and anything that is not a plain decimal number
// are rejected.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrNegativeAmount
//	ParseAmount("abc")   -> 0, ErrMalformedAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	// decimal accepts exponents; plain input only
	if strings.ContainsAny(s, "eE") {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// ParseBudget parses a budget field. An empty value means unset (zero).
func ParseBudget(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := ParseAmount(s)
	if errors.Is(err, ErrNegativeAmount) {
		return decimal.Zero, ErrNegativeBudget
	}
	return d, err
}

// FormatAmount renders an amount with two decimals, e.g. "600.00".
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMoney renders an amount with two decimals and the currency, e.g. "600.00 USD".
func FormatMoney(d decimal.Decimal) string {
	return FormatAmount(d) + " " + Currency
}
