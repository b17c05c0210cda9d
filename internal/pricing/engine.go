package pricing

import "github.com/noah-isme/dulceria-api/internal/discount"

// Money represents a monetary value in the store currency.
type Money = discount.Money

// Item describes a line item used for pricing calculation.
type Item struct {
	Qty          int
	UnitPrice    Money
	UnitDiscount Money
}

// Summary aggregates computed pricing components.
type Summary struct {
	Subtotal Money `json:"subtotal"`
	Discount Money `json:"discount"`
	Tax      Money `json:"tax"`
	Shipping Money `json:"shipping"`
	Total    Money `json:"total"`
}

// Compute calculates cart totals. Tax is charged in basis points on the discounted subtotal.
func Compute(items []Item, taxBps int, shipping Money) Summary {
	var subtotal, off Money
	for _, it := range items {
		if it.Qty <= 0 {
			continue
		}
		subtotal += Money(it.Qty) * it.UnitPrice
		if it.UnitDiscount > 0 {
			off += Money(it.Qty) * it.UnitDiscount
		}
	}
	if off > subtotal {
		off = subtotal
	}
	taxable := subtotal - off
	if taxable < 0 {
		taxable = 0
	}
	if shipping < 0 {
		shipping = 0
	}
	tax := (taxable * Money(taxBps)) / 10000
	total := taxable + tax + shipping
	return Summary{
		Subtotal: subtotal,
		Discount: off,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
	}
}
