package provider

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNegativeAmount is returned when a negative amount is converted for a gateway
var ErrNegativeAmount = errors.New("amount must not be negative")

// zeroDecimalCurrencies have no minor unit
var zeroDecimalCurrencies = map[string]bool{
	"BIF": true, "CLP": true, "DJF": true, "GNF": true, "ISK": true,
	"JPY": true, "KMF": true, "KRW": true, "PYG": true, "RWF": true,
	"UGX": true, "VND": true, "VUV": true, "XAF": true, "XOF": true,
	"XPF": true,
}

// threeDecimalCurrencies have a minor unit of one thousandth
var threeDecimalCurrencies = map[string]bool{
	"BHD": true, "IQD": true, "JOD": true, "KWD": true, "LYD": true,
	"OMR": true, "TND": true,
}

// CurrencyExponent returns the number of minor-unit digits of an ISO 4217 currency code
func CurrencyExponent(currency string) int32 {
	code := strings.ToUpper(strings.TrimSpace(currency))
	switch {
	case zeroDecimalCurrencies[code]:
		return 0
	case threeDecimalCurrencies[code]:
		return 3
	default:
		return 2
	}
}

// ToSmallestUnit converts a major-unit amount into the smallest currency unit (paise, cents, ...).
// Values are rounded half away from zero.
func ToSmallestUnit(amount decimal.Decimal, currency string) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrNegativeAmount, amount.String())
	}

	units := amount.Shift(CurrencyExponent(currency)).Round(0)
	if !units.IsInteger() || units.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("amount %s out of range", amount.String())
	}

	return units.IntPart(), nil
}

// FromSmallestUnit converts an amount in the smallest currency unit back to major units
func FromSmallestUnit(units int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(units).Shift(-CurrencyExponent(currency))
}
