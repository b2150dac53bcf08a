// Package currency holds the fixed display-currency table and the per-visitor
// currency selection.
package currency

import (
	"math"
	"strings"

	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// SymbolPosition places the currency symbol relative to the amount.
type SymbolPosition string

const (
	SymbolPrefix SymbolPosition = "prefix"
	SymbolSuffix SymbolPosition = "suffix"
)

// Info describes one display currency. Rate converts from the base currency.
type Info struct {
	Code     enums.Currency  `json:"code"`
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Rate     decimal.Decimal `json:"rate"`
	Position SymbolPosition  `json:"position"`
}

var table = map[enums.Currency]Info{
	enums.CurrencyTND:  {Code: enums.CurrencyTND, Symbol: "DT", Name: "Tunisian Dinar", Rate: decimal.NewFromInt(1), Position: SymbolSuffix},
	enums.CurrencyEUR:  {Code: enums.CurrencyEUR, Symbol: "€", Name: "Euro", Rate: decimal.RequireFromString("0.30"), Position: SymbolPrefix},
	enums.CurrencyUSD:  {Code: enums.CurrencyUSD, Symbol: "$", Name: "US Dollar", Rate: decimal.RequireFromString("0.32"), Position: SymbolPrefix},
	enums.CurrencyCNY:  {Code: enums.CurrencyCNY, Symbol: "¥", Name: "Chinese Yuan", Rate: decimal.RequireFromString("2.3"), Position: SymbolPrefix},
	enums.CurrencyUSDT: {Code: enums.CurrencyUSDT, Symbol: "USDT", Name: "Tether", Rate: decimal.RequireFromString("0.32"), Position: SymbolSuffix},
}

// euroZone lists the countries whose visitors default to EUR.
var euroZone = []string{
	"AT", "BE", "CY", "DE", "EE", "ES", "FI", "FR", "GR", "HR", "IE", "IT",
	"LT", "LU", "LV", "MT", "NL", "PT", "SI", "SK",
}

var countryCurrency = func() map[string]enums.Currency {
	m := map[string]enums.Currency{
		"TN": enums.CurrencyTND,
		"US": enums.CurrencyUSD,
		"CN": enums.CurrencyCNY,
	}
	for _, country := range euroZone {
		m[country] = enums.CurrencyEUR
	}
	return m
}()

// DefaultDetectedCurrency is used for countries without a mapping.
const DefaultDetectedCurrency = enums.CurrencyUSD

// Lookup returns the table entry for code.
func Lookup(code enums.Currency) (Info, bool) {
	info, ok := table[code]
	return info, ok
}

// Currencies lists every supported currency in display order.
func Currencies() []Info {
	codes := enums.Currencies()
	out := make([]Info, 0, len(codes))
	for _, code := range codes {
		out = append(out, table[code])
	}
	return out
}

// Convert turns a base-currency amount into code. Unknown codes return the amount unchanged.
func Convert(amountInBase decimal.Decimal, code enums.Currency) decimal.Decimal {
	info, ok := table[code]
	if !ok {
		return amountInBase
	}
	return amountInBase.Mul(info.Rate)
}

// Format renders amount with two decimals and the currency symbol. Zero
// renders as "0"; unknown codes render the bare number.
func Format(amount decimal.Decimal, code enums.Currency) string {
	if amount.IsZero() {
		return "0"
	}
	number := amount.StringFixed(2)
	info, ok := table[code]
	if !ok {
		return number
	}
	if info.Position == SymbolPrefix {
		return info.Symbol + number
	}
	return number + " " + info.Symbol
}

// FormatFloat is Format for float inputs; NaN and infinities render as "0".
func FormatFloat(amount float64, code enums.Currency) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "0"
	}
	return Format(decimal.NewFromFloat(amount), code)
}

// ParseAmount parses a decimal amount leniently; anything unparsable is zero.
func ParseAmount(raw string) decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// ForCountry maps an ISO country code to its display currency.
func ForCountry(countryCode string) enums.Currency {
	if code, ok := countryCurrency[strings.ToUpper(strings.TrimSpace(countryCode))]; ok {
		return code
	}
	return DefaultDetectedCurrency
}
