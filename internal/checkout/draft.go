package checkout

import (
	"github.com/angelmondragon/storefront-gateway/internal/cart"
	"github.com/angelmondragon/storefront-gateway/internal/currency"
	"github.com/angelmondragon/storefront-gateway/pkg/backend"
	"github.com/angelmondragon/storefront-gateway/pkg/enums"
)

// VendorTotals captures pre-calculated totals for one vendor's lines.
type VendorTotals struct {
	VendorID  string      `json:"vendorId"`
	ItemCount int         `json:"itemCount"`
	Subtotal  cart.Amount `json:"subtotal"`
	Savings   cart.Amount `json:"savings"`
	Lines     cart.Cart   `json:"lines"`
}

// Draft is the order as it will be submitted, priced in base currency with
// display renderings.
type Draft struct {
	Vendors      []VendorTotals `json:"vendors"`
	ItemsCount   int            `json:"itemsCount"`
	Subtotal     cart.Amount    `json:"subtotal"`
	Savings      cart.Amount    `json:"savings"`
	ShippingCost cart.Amount    `json:"shippingCost"`
	Total        cart.Amount    `json:"total"`
	FreeShipping bool           `json:"freeShipping"`
	BaseCurrency enums.Currency `json:"baseCurrency"`
	Currency     enums.Currency `json:"currency"`
}

// ComputeVendorTotals returns the subtotal, savings and item count of one
// vendor group.
func ComputeVendorTotals(vendorID string, lines cart.Cart, sel currency.Selection) VendorTotals {
	subtotal := lines.Total()
	savings := lines.TotalSavings()
	totals := VendorTotals{
		VendorID:  vendorID,
		ItemCount: lines.ItemsCount(),
		Subtotal:  cart.Amount{Base: subtotal, Display: sel.Format(subtotal)},
		Savings:   cart.Amount{Base: savings, Display: sel.Format(savings)},
		Lines:     lines,
	}
	return totals
}

// draftFrom builds the draft from a cart summary.
func draftFrom(summary cart.Summary, sel currency.Selection) Draft {
	vendors := make([]VendorTotals, 0, len(summary.Vendors))
	for _, group := range summary.Vendors {
		vendors = append(vendors, ComputeVendorTotals(group.VendorID, group.Lines, sel))
	}
	return Draft{
		Vendors:      vendors,
		ItemsCount:   summary.ItemsCount,
		Subtotal:     summary.Total,
		Savings:      summary.TotalSavings,
		ShippingCost: summary.ShippingCost,
		Total:        summary.GrandTotal,
		FreeShipping: summary.FreeShipping,
		BaseCurrency: enums.BaseCurrency,
		Currency:     summary.Currency,
	}
}

func orderLines(draft Draft) []backend.OrderLine {
	var out []backend.OrderLine
	for _, vendor := range draft.Vendors {
		for _, line := range vendor.Lines {
			out = append(out, backend.OrderLine{
				ProductID:        line.ProductID,
				Quantity:         line.Quantity,
				UnitPrice:        line.UnitPrice,
				SelectedVariants: line.SelectedOptions,
				VendorID:         line.VendorID,
			})
		}
	}
	return out
}
