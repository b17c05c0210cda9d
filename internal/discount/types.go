package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money represents an amount in the store currency. Guaraníes have no minor unit.
type Money = int64

// Kind selects how a discount value is interpreted.
type Kind string

const (
	// KindPercentage interprets the value as a percentage of the unit price.
	KindPercentage Kind = "percentage"
	// KindAmount interprets the value as a flat amount off the unit price.
	KindAmount Kind = "amount"
)

// Valid reports whether k is a known discount kind.
func (k Kind) Valid() bool {
	return k == KindPercentage || k == KindAmount
}

// Source identifies which rule produced a discount result.
type Source string

const (
	SourceNone   Source = "none"
	SourceFixed  Source = "fixed"
	SourceTiered Source = "tiered"
)

// FixedDiscount is a quantity-independent discount gated by an optional date window.
type FixedDiscount struct {
	Enabled   bool            `json:"enabled"`
	Type      Kind            `json:"type"`
	Value     decimal.Decimal `json:"value"`
	StartDate *time.Time      `json:"startDate,omitempty"`
	EndDate   *time.Time      `json:"endDate,omitempty"`
	Badge     *string         `json:"badge,omitempty"`
}

// Tier is a single rung of a quantity discount ladder. A nil MaxQuantity is unbounded.
type Tier struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity *int            `json:"maxQuantity,omitempty"`
	Type        Kind            `json:"type"`
	Value       decimal.Decimal `json:"value"`
}

// Matches reports whether quantity falls within the tier bounds, inclusive on both ends.
func (t Tier) Matches(quantity int) bool {
	if quantity < t.MinQuantity {
		return false
	}
	return t.MaxQuantity == nil || quantity <= *t.MaxQuantity
}

// TieredDiscount is a quantity ladder. Tiers keep insertion order and are never sorted.
type TieredDiscount struct {
	Enabled bool   `json:"enabled"`
	Tiers   []Tier `json:"tiers"`
}

// Item is the priced view of a catalog variant consumed by the engine.
type Item struct {
	UnitPrice Money
	Fixed     *FixedDiscount
	Tiered    *TieredDiscount
}

// Result is the outcome of a discount calculation for one unit.
type Result struct {
	HasDiscount        bool    `json:"hasDiscount"`
	OriginalPrice      Money   `json:"originalPrice"`
	DiscountedPrice    Money   `json:"discountedPrice"`
	DiscountAmount     Money   `json:"discountAmount"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Badge              *string `json:"badge,omitempty"`
	Source             Source  `json:"source"`
}

// PriceBreakdown previews the cost of buying quantity units of an item.
type PriceBreakdown struct {
	UnitPrice          Money   `json:"unitPrice"`
	DiscountedPrice    Money   `json:"discountedPrice"`
	Quantity           int     `json:"quantity"`
	LineTotal          Money   `json:"lineTotal"`
	DiscountAmount     Money   `json:"discountAmount"`
	DiscountPercentage float64 `json:"discountPercentage"`
	Badge              *string `json:"badge,omitempty"`
	Source             Source  `json:"source"`
}

// TierBanner is a tier rendered for "buy N, save X" banners.
type TierBanner struct {
	MinQuantity int             `json:"minQuantity"`
	MaxQuantity *int            `json:"maxQuantity,omitempty"`
	Type        Kind            `json:"type"`
	Value       decimal.Decimal `json:"value"`
	UnitPrice   Money           `json:"unitPrice"`
	Label       string          `json:"label"`
}
