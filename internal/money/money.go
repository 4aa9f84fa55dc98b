// Package money converts between decimal amounts and the integer minor
// units used by the payment provider.
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnsupportedCurrency is returned for currency codes outside the table.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrPrecision is returned when an amount has more fractional digits
	// than its currency can represent.
	ErrPrecision = errors.New("amount exceeds currency precision")

	// ErrOutOfRange is returned when a minor-unit amount does not fit in int64.
	ErrOutOfRange = errors.New("amount out of range")
)

// Currencies without a minor unit.
var zeroDecimal = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "JPY": {}, "KMF": {},
	"KRW": {}, "MGA": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// Currencies with three decimal places.
var threeDecimal = map[string]struct{}{
	"BHD": {}, "JOD": {}, "KWD": {}, "OMR": {}, "TND": {},
}

var twoDecimal = map[string]struct{}{
	"AED": {}, "ARS": {}, "AUD": {}, "BGN": {}, "BRL": {}, "CAD": {},
	"CHF": {}, "CNY": {}, "COP": {}, "CZK": {}, "DKK": {}, "EGP": {},
	"EUR": {}, "GBP": {}, "HKD": {}, "HUF": {}, "IDR": {}, "ILS": {},
	"INR": {}, "ISK": {}, "MAD": {}, "MXN": {}, "MYR": {}, "NOK": {},
	"NZD": {}, "PEN": {}, "PHP": {}, "PKR": {}, "PLN": {}, "RON": {},
	"RUB": {}, "SAR": {}, "SEK": {}, "SGD": {}, "THB": {}, "TRY": {},
	"TWD": {}, "UAH": {}, "USD": {}, "ZAR": {},
}

// Normalize returns the canonical upper-case form of a currency code.
func Normalize(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// Exponent returns the number of minor-unit digits for a currency.
func Exponent(currency string) (int32, error) {
	code := Normalize(currency)
	if _, ok := zeroDecimal[code]; ok {
		return 0, nil
	}
	if _, ok := threeDecimal[code]; ok {
		return 3, nil
	}
	if _, ok := twoDecimal[code]; ok {
		return 2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, currency)
}

// ToMinor converts a major-unit amount (50.00 USD) to minor units (5000).
// The conversion never rounds.
func ToMinor(amount decimal.Decimal, currency string) (int64, error) {
	exp, err := Exponent(currency)
	if err != nil {
		return 0, err
	}

	scaled := amount.Shift(exp)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %s %s", ErrPrecision, amount.String(), Normalize(currency))
	}
	if scaled.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || scaled.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfRange, amount.String())
	}

	return scaled.IntPart(), nil
}

// ToMajor converts minor units back to a major-unit amount.
func ToMajor(minor int64, currency string) (decimal.Decimal, error) {
	exp, err := Exponent(currency)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(minor, -exp), nil
}

// Format renders an amount with exactly the currency's number of decimals.
func Format(amount decimal.Decimal, currency string) string {
	exp, err := Exponent(currency)
	if err != nil {
		return amount.String()
	}
	return amount.StringFixed(exp)
}
