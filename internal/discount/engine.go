package discount

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Engine computes discounts against an injected clock. It holds no other state and is
// safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine constructs an Engine. A nil clock falls back to time.Now.
func NewEngine(clock func() time.Time) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{now: clock}
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Calculate runs Calculate at the engine's current time.
func (e *Engine) Calculate(item Item, quantity int) Result {
	return Calculate(item, quantity, e.now())
}

// PriceByQuantity previews the line total for quantity units at the engine's current time.
func (e *Engine) PriceByQuantity(item Item, quantity int) PriceBreakdown {
	res := Calculate(item, quantity, e.now())
	return PriceBreakdown{
		UnitPrice:          item.UnitPrice,
		DiscountedPrice:    res.DiscountedPrice,
		Quantity:           quantity,
		LineTotal:          res.DiscountedPrice * Money(quantity),
		DiscountAmount:     res.DiscountAmount,
		DiscountPercentage: res.DiscountPercentage,
		Badge:              res.Badge,
		Source:             res.Source,
	}
}

// IsFixedDiscountActive reports whether the item's fixed discount is enabled and now lies
// within its window. Missing bounds are open.
func IsFixedDiscountActive(item Item, now time.Time) bool {
	fd := item.Fixed
	if fd == nil || !fd.Enabled {
		return false
	}
	if fd.StartDate != nil && now.Before(*fd.StartDate) {
		return false
	}
	if fd.EndDate != nil && now.After(*fd.EndDate) {
		return false
	}
	return true
}

// FindApplicableTier returns the first tier in list order that matches quantity.
// Overlapping tiers are not an error; the earlier entry wins.
func FindApplicableTier(td *TieredDiscount, quantity int) (Tier, bool) {
	if td == nil || !td.Enabled {
		return Tier{}, false
	}
	for _, tier := range td.Tiers {
		if tier.Matches(quantity) {
			return tier, true
		}
	}
	return Tier{}, false
}

// Calculate resolves the single best discount for one unit of item when buying quantity
// units at now. Fixed and tiered discounts never stack: the tier only wins when its
// amount is strictly greater than the active fixed discount.
func Calculate(item Item, quantity int, now time.Time) Result {
	best := decimal.Zero
	var badge *string
	source := SourceNone

	if IsFixedDiscountActive(item, now) {
		fd := item.Fixed
		best = amountFor(fd.Type, fd.Value, item.UnitPrice)
		if fd.Badge != nil && *fd.Badge != "" {
			label := *fd.Badge
			badge = &label
		} else {
			label := defaultBadge(fd.Type, fd.Value)
			badge = &label
		}
		source = SourceFixed
	}

	if tier, ok := FindApplicableTier(item.Tiered, quantity); ok {
		tiered := amountFor(tier.Type, tier.Value, item.UnitPrice)
		if tiered.GreaterThan(best) {
			best = tiered
			label := fmt.Sprintf("%d+ unidades", quantity)
			badge = &label
			source = SourceTiered
		}
	}

	amount := toMoney(best)
	if amount <= 0 {
		return Result{
			OriginalPrice:   item.UnitPrice,
			DiscountedPrice: item.UnitPrice,
			Source:          SourceNone,
		}
	}

	discounted := item.UnitPrice - amount
	if discounted < 0 {
		discounted = 0
	}
	return Result{
		HasDiscount:        true,
		OriginalPrice:      item.UnitPrice,
		DiscountedPrice:    discounted,
		DiscountAmount:     amount,
		DiscountPercentage: percentageOf(best, item.UnitPrice),
		Badge:              badge,
		Source:             source,
	}
}

// TierPreview lists the enabled tier ladder in its stored order, each priced per unit.
func TierPreview(item Item) []TierBanner {
	td := item.Tiered
	if td == nil || !td.Enabled || len(td.Tiers) == 0 {
		return nil
	}
	out := make([]TierBanner, 0, len(td.Tiers))
	for _, tier := range td.Tiers {
		unit := item.UnitPrice - toMoney(amountFor(tier.Type, tier.Value, item.UnitPrice))
		if unit < 0 {
			unit = 0
		}
		out = append(out, TierBanner{
			MinQuantity: tier.MinQuantity,
			MaxQuantity: tier.MaxQuantity,
			Type:        tier.Type,
			Value:       tier.Value,
			UnitPrice:   unit,
			Label:       fmt.Sprintf("%d+ unidades: %s", tier.MinQuantity, defaultBadge(tier.Type, tier.Value)),
		})
	}
	return out
}

func amountFor(kind Kind, value decimal.Decimal, unitPrice Money) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}
	switch kind {
	case KindPercentage:
		return decimal.NewFromInt(unitPrice).Mul(value).Div(hundred)
	case KindAmount:
		return value
	default:
		return decimal.Zero
	}
}

func defaultBadge(kind Kind, value decimal.Decimal) string {
	if kind == KindAmount {
		return fmt.Sprintf("$%s OFF", value.String())
	}
	return fmt.Sprintf("%s%% OFF", value.String())
}

func toMoney(d decimal.Decimal) Money {
	return d.Round(0).IntPart()
}

func percentageOf(amount decimal.Decimal, unitPrice Money) float64 {
	if unitPrice == 0 {
		return 0
	}
	return amount.Div(decimal.NewFromInt(unitPrice)).Mul(hundred).Round(2).InexactFloat64()
}
