package cart

import (
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
	"github.com/shopspring/decimal"
)

// VendorGroup is the per-vendor slice of a summary.
type VendorGroup struct {
	VendorID string          `json:"vendorId"`
	Lines    Cart            `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// Amount is a base-currency value with its display rendering.
type Amount struct {
	Base    decimal.Decimal `json:"base"`
	Display string          `json:"display"`
}

// Summary is every derived cart value, in base currency and formatted for display.
type Summary struct {
	Mode         Mode           `json:"mode"`
	Lines        Cart           `json:"lines"`
	ItemsCount   int            `json:"itemsCount"`
	Total        Amount         `json:"total"`
	TotalSavings Amount         `json:"totalSavings"`
	ShippingCost Amount         `json:"shippingCost"`
	GrandTotal   Amount         `json:"grandTotal"`
	FreeShipping bool           `json:"freeShipping"`
	Vendors      []VendorGroup  `json:"vendors"`
	Currency     enums.Currency `json:"currency"`
	Stale        bool           `json:"stale,omitempty"`
}

// Summarize computes the summary of view in the selected display currency.
func Summarize(view View, policy ShippingPolicy, sel currency.Selection) Summary {
	lines := view.Lines
	total := lines.Total()
	shipping := lines.ShippingCost(policy)
	amount := func(v decimal.Decimal) Amount {
		return Amount{Base: v, Display: sel.Format(v)}
	}

	grouped := lines.ItemsByVendor()
	vendors := make([]VendorGroup, 0, len(grouped))
	for _, vendor := range lines.Vendors() {
		group := grouped[vendor]
		vendors = append(vendors, VendorGroup{VendorID: vendor, Lines: group, Subtotal: group.Total()})
	}

	return Summary{
		Mode:         view.Mode,
		Lines:        lines,
		ItemsCount:   lines.ItemsCount(),
		Total:        amount(total),
		TotalSavings: amount(lines.TotalSavings()),
		ShippingCost: amount(shipping),
		GrandTotal:   amount(total.Add(shipping)),
		FreeShipping: len(lines) > 0 && shipping.IsZero(),
		Vendors:      vendors,
		Currency:     sel.Code,
		Stale:        view.Stale,
	}
}
