package cart

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UnknownVendor groups lines that carry no vendor reference.
const UnknownVendor = "unknown"

// Line is one row of a cart. (ProductID, SelectedOptions) identifies it.
type Line struct {
	ProductID         string            `json:"productId"`
	Name              string            `json:"name"`
	UnitPrice         decimal.Decimal   `json:"unitPrice"`
	OriginalUnitPrice *decimal.Decimal  `json:"originalUnitPrice,omitempty"`
	ImageURL          string            `json:"imageUrl,omitempty"`
	Quantity          int               `json:"quantity"`
	SelectedOptions   map[string]string `json:"selectedOptions,omitempty"`
	VendorID          string            `json:"vendorId,omitempty"`
	AddedAt           time.Time         `json:"addedAt"`
}

// Key returns the line identity.
func (l Line) Key() string {
	return LineKey(l.ProductID, l.SelectedOptions)
}

// Subtotal is unit price times quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Savings is the positive gap to the original price times quantity.
func (l Line) Savings() decimal.Decimal {
	if l.OriginalUnitPrice == nil {
		return decimal.Zero
	}
	gap := l.OriginalUnitPrice.Sub(l.UnitPrice)
	if !gap.IsPositive() {
		return decimal.Zero
	}
	return gap.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineKey builds the identity of a product/options pair. Options serialize
// with sorted keys so {a,b} and {b,a} collide; empty and nil options match.
func LineKey(productID string, options map[string]string) string {
	return strings.TrimSpace(productID) + "|" + canonicalOptions(options)
}

func canonicalOptions(options map[string]string) string {
	if len(options) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(options))
	for k := range options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		key, _ := json.Marshal(k)
		value, _ := json.Marshal(options[k])
		b.Write(key)
		b.WriteByte(':')
		b.Write(value)
	}
	b.WriteByte('}')
	return b.String()
}

func cloneOptions(options map[string]string) map[string]string {
	if len(options) == 0 {
		return nil
	}
	out := make(map[string]string, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}
