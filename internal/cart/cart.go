// Package cart implements the dual-mode storefront cart: a guest cart kept in
// the visitor profile and an authenticated cart mirrored from the backend.
package cart

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cart is an ordered list of lines with unique identities.
type Cart []Line

// Clone returns a deep copy.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for i, line := range c {
		line.SelectedOptions = cloneOptions(line.SelectedOptions)
		if line.OriginalUnitPrice != nil {
			original := *line.OriginalUnitPrice
			line.OriginalUnitPrice = &original
		}
		out[i] = line
	}
	return out
}

func (c Cart) index(key string) int {
	for i, line := range c {
		if line.Key() == key {
			return i
		}
	}
	return -1
}

// Add merges line into the cart: an existing identity gains line.Quantity,
// otherwise line is appended.
func (c Cart) Add(line Line) Cart {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	line.SelectedOptions = cloneOptions(line.SelectedOptions)
	if i := c.index(line.Key()); i >= 0 {
		c[i].Quantity += line.Quantity
		return c
	}
	return append(c, line)
}

// SetQuantity sets the quantity of a line; quantity ≤ 0 removes it.
func (c Cart) SetQuantity(productID string, options map[string]string, quantity int) Cart {
	if quantity <= 0 {
		return c.Remove(productID, options)
	}
	if i := c.index(LineKey(productID, options)); i >= 0 {
		c[i].Quantity = quantity
	}
	return c
}

// Remove drops the matching line, if present.
func (c Cart) Remove(productID string, options map[string]string) Cart {
	i := c.index(LineKey(productID, options))
	if i < 0 {
		return c
	}
	return append(c[:i], c[i+1:]...)
}

// Total is Σ unitPrice × quantity.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.Subtotal())
	}
	return total
}

// ItemsCount is Σ quantity.
func (c Cart) ItemsCount() int {
	count := 0
	for _, line := range c {
		count += line.Quantity
	}
	return count
}

// TotalSavings is Σ max(0, original − unit) × quantity over lines with an original price.
func (c Cart) TotalSavings() decimal.Decimal {
	total := decimal.Zero
	for _, line := range c {
		total = total.Add(line.Savings())
	}
	return total
}

// ItemsByVendor groups lines by vendor id; lines without one go under UnknownVendor.
func (c Cart) ItemsByVendor() map[string]Cart {
	grouped := make(map[string]Cart)
	for _, line := range c {
		vendor := line.VendorID
		if vendor == "" {
			vendor = UnknownVendor
		}
		grouped[vendor] = append(grouped[vendor], line)
	}
	return grouped
}

// Vendors returns the distinct vendor keys in sorted order.
func (c Cart) Vendors() []string {
	grouped := c.ItemsByVendor()
	out := make([]string, 0, len(grouped))
	for vendor := range grouped {
		out = append(out, vendor)
	}
	sort.Strings(out)
	return out
}

// IsInCart reports whether the product/options pair has a line.
func (c Cart) IsInCart(productID string, options map[string]string) bool {
	return c.index(LineKey(productID, options)) >= 0
}

// ItemQuantity returns the quantity of the product/options pair, or 0.
func (c Cart) ItemQuantity(productID string, options map[string]string) int {
	if i := c.index(LineKey(productID, options)); i >= 0 {
		return c[i].Quantity
	}
	return 0
}

// ShippingPolicy prices delivery in the base currency.
type ShippingPolicy struct {
	FreeThreshold decimal.Decimal
	FeePerVendor  decimal.Decimal
}

// ShippingCost is zero once the total reaches the threshold, otherwise the fee
// times the number of distinct vendors. An empty cart ships for free.
func (c Cart) ShippingCost(policy ShippingPolicy) decimal.Decimal {
	if len(c) == 0 || c.Total().GreaterThanOrEqual(policy.FreeThreshold) {
		return decimal.Zero
	}
	return policy.FeePerVendor.Mul(decimal.NewFromInt(int64(len(c.ItemsByVendor()))))
}
