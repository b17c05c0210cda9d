package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/dulceria-api/internal/discount"
)

// DefaultLowStockThreshold applies to variants without their own threshold.
const DefaultLowStockThreshold = 5

// Product is a catalog entry grouping purchasable variants.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Color       string    `json:"color,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Variant is a purchasable SKU. Discount sub-documents are read-only inputs to pricing.
type Variant struct {
	ID                uuid.UUID                `json:"id"`
	ProductID         uuid.UUID                `json:"productId"`
	SKU               string                   `json:"sku"`
	Name              string                   `json:"name"`
	Price             discount.Money           `json:"price"`
	Stock             int                      `json:"stock"`
	LowStockThreshold *int                     `json:"lowStockThreshold,omitempty"`
	Active            bool                     `json:"active"`
	FixedDiscount     *discount.FixedDiscount  `json:"fixedDiscount,omitempty"`
	TieredDiscount    *discount.TieredDiscount `json:"tieredDiscount,omitempty"`
	CreatedAt         time.Time                `json:"createdAt"`
	UpdatedAt         time.Time                `json:"updatedAt"`
}

// PricedItem projects the variant onto the discount engine input.
func (v Variant) PricedItem() discount.Item {
	return discount.Item{
		UnitPrice: v.Price,
		Fixed:     v.FixedDiscount,
		Tiered:    v.TieredDiscount,
	}
}

// InStock reports whether any units are available.
func InStock(v Variant) bool {
	return v.Stock > 0
}

// LowStock reports whether stock is positive but at or under the variant threshold,
// falling back to defaultThreshold.
func LowStock(v Variant, defaultThreshold int) bool {
	threshold := defaultThreshold
	if v.LowStockThreshold != nil {
		threshold = *v.LowStockThreshold
	}
	return v.Stock > 0 && v.Stock <= threshold
}

// VariantView is the read-path projection of a variant with derived stock flags and
// a discount annotation computed at read time.
type VariantView struct {
	ID             uuid.UUID                `json:"id"`
	ProductID      uuid.UUID                `json:"productId"`
	SKU            string                   `json:"sku"`
	Name           string                   `json:"name"`
	Price          discount.Money           `json:"price"`
	Stock          int                      `json:"stock"`
	InStock        bool                     `json:"inStock"`
	LowStock       bool                     `json:"lowStock"`
	Active         bool                     `json:"active"`
	FixedDiscount  *discount.FixedDiscount  `json:"fixedDiscount,omitempty"`
	TieredDiscount *discount.TieredDiscount `json:"tieredDiscount,omitempty"`
	Discount       discount.Result          `json:"discount"`
	Tiers          []discount.TierBanner    `json:"tiers,omitempty"`
}

// ProductDetail is a product with its annotated variants.
type ProductDetail struct {
	Product
	Variants []VariantView `json:"variants"`
}

// BatchFailure describes one rejected row of a batch create.
type BatchFailure struct {
	Index   int    `json:"index"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// BatchResult collects both outcomes of a best-effort batch create.
type BatchResult struct {
	Created []VariantView  `json:"created"`
	Failed  []BatchFailure `json:"failed"`
}
