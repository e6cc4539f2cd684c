package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 currency code.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

var validCurrencies = []Currency{
	CurrencyEUR,
	CurrencyUSD,
	CurrencyGBP,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the value is a supported Currency.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts raw input into a Currency.
func ParseCurrency(value string) (Currency, error) {
	upper := Currency(strings.ToUpper(strings.TrimSpace(value)))
	for _, candidate := range validCurrencies {
		if candidate == upper {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
