package enums

import (
	"fmt"
	"strings"
)

// Currency represents the storefront display currencies.
type Currency string

const (
	CurrencyTND  Currency = "TND"
	CurrencyEUR  Currency = "EUR"
	CurrencyUSD  Currency = "USD"
	CurrencyCNY  Currency = "CNY"
	CurrencyUSDT Currency = "USDT"
)

// BaseCurrency is the currency catalog prices are quoted in.
const BaseCurrency = CurrencyTND

var validCurrencies = []Currency{
	CurrencyTND,
	CurrencyEUR,
	CurrencyUSD,
	CurrencyCNY,
	CurrencyUSDT,
}

// Currencies returns the supported currencies in display order.
func Currencies() []Currency {
	out := make([]Currency, len(validCurrencies))
	copy(out, validCurrencies)
	return out
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCurrency converts a raw string into a Currency. Matching ignores case and surrounding space.
func ParseCurrency(value string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validCurrencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
