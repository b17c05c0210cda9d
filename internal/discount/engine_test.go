package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestCalculateWithoutDiscountIsIdentity(t *testing.T) {
	items := []Item{
		{UnitPrice: 7500},
		{UnitPrice: 7500, Fixed: &FixedDiscount{Enabled: false, Type: KindPercentage, Value: dec(50)}},
		{UnitPrice: 7500, Tiered: &TieredDiscount{Enabled: false, Tiers: []Tier{{MinQuantity: 1, Type: KindAmount, Value: dec(100)}}}},
	}
	for _, item := range items {
		for _, q := range []int{1, 2, 10, 500} {
			res := Calculate(item, q, fixedNow)
			require.False(t, res.HasDiscount)
			require.Equal(t, item.UnitPrice, res.DiscountedPrice)
			require.Equal(t, item.UnitPrice, res.OriginalPrice)
			require.Zero(t, res.DiscountAmount)
			require.Zero(t, res.DiscountPercentage)
			require.Nil(t, res.Badge)
			require.Equal(t, SourceNone, res.Source)
		}
	}
}

func TestCalculatePercentageAndAmount(t *testing.T) {
	pct := Item{UnitPrice: 10000, Fixed: &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(20)}}
	res := Calculate(pct, 1, fixedNow)
	require.True(t, res.HasDiscount)
	require.Equal(t, Money(2000), res.DiscountAmount)
	require.Equal(t, Money(8000), res.DiscountedPrice)
	require.Equal(t, 20.0, res.DiscountPercentage)
	require.Equal(t, SourceFixed, res.Source)

	amt := Item{UnitPrice: 10000, Fixed: &FixedDiscount{Enabled: true, Type: KindAmount, Value: dec(1500)}}
	res = Calculate(amt, 1, fixedNow)
	require.Equal(t, Money(1500), res.DiscountAmount)
	require.Equal(t, Money(8500), res.DiscountedPrice)
	require.Equal(t, 15.0, res.DiscountPercentage)
	require.NotNil(t, res.Badge)
	require.Equal(t, "$1500 OFF", *res.Badge)
}

func TestCalculateFloorsAtZero(t *testing.T) {
	for _, value := range []int64{3000, 3001, 99999} {
		item := Item{UnitPrice: 3000, Fixed: &FixedDiscount{Enabled: true, Type: KindAmount, Value: dec(value)}}
		res := Calculate(item, 1, fixedNow)
		require.True(t, res.HasDiscount)
		require.Equal(t, Money(0), res.DiscountedPrice)
		require.Equal(t, Money(value), res.DiscountAmount)
	}
}

func TestCalculateBestOfNeverStacks(t *testing.T) {
	item := Item{
		UnitPrice: 10000,
		Fixed:     &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(10)},
		Tiered: &TieredDiscount{Enabled: true, Tiers: []Tier{
			{MinQuantity: 2, Type: KindAmount, Value: dec(1500)},
		}},
	}

	res := Calculate(item, 1, fixedNow)
	require.Equal(t, Money(1000), res.DiscountAmount)
	require.Equal(t, SourceFixed, res.Source)

	res = Calculate(item, 2, fixedNow)
	require.Equal(t, Money(1500), res.DiscountAmount)
	require.Equal(t, Money(8500), res.DiscountedPrice)
	require.Equal(t, SourceTiered, res.Source)
}

func TestCalculateTierMustBeStrictlyGreater(t *testing.T) {
	badge := "Semana dulce"
	item := Item{
		UnitPrice: 10000,
		Fixed:     &FixedDiscount{Enabled: true, Type: KindAmount, Value: dec(1000), Badge: &badge},
		Tiered: &TieredDiscount{Enabled: true, Tiers: []Tier{
			{MinQuantity: 1, Type: KindPercentage, Value: dec(10)},
		}},
	}
	res := Calculate(item, 4, fixedNow)
	require.Equal(t, Money(1000), res.DiscountAmount)
	require.Equal(t, SourceFixed, res.Source)
	require.Equal(t, "Semana dulce", *res.Badge)
}

func TestIsFixedDiscountActiveWindow(t *testing.T) {
	base := FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(10)}

	future := base
	future.StartDate = timePtr(fixedNow.Add(time.Hour))
	require.False(t, IsFixedDiscountActive(Item{Fixed: &future}, fixedNow))

	expired := base
	expired.EndDate = timePtr(fixedNow.Add(-time.Hour))
	require.False(t, IsFixedDiscountActive(Item{Fixed: &expired}, fixedNow))

	current := base
	current.StartDate = timePtr(fixedNow.Add(-time.Hour))
	current.EndDate = timePtr(fixedNow.Add(time.Hour))
	require.True(t, IsFixedDiscountActive(Item{Fixed: &current}, fixedNow))

	edges := base
	edges.StartDate = timePtr(fixedNow)
	edges.EndDate = timePtr(fixedNow)
	require.True(t, IsFixedDiscountActive(Item{Fixed: &edges}, fixedNow))

	unbounded := base
	require.True(t, IsFixedDiscountActive(Item{Fixed: &unbounded}, fixedNow))

	disabled := current
	disabled.Enabled = false
	require.False(t, IsFixedDiscountActive(Item{Fixed: &disabled}, fixedNow))

	require.False(t, IsFixedDiscountActive(Item{}, fixedNow))
}

func TestFindApplicableTierBounds(t *testing.T) {
	td := &TieredDiscount{Enabled: true, Tiers: []Tier{
		{MinQuantity: 5, MaxQuantity: intPtr(10), Type: KindPercentage, Value: dec(5)},
	}}
	for _, q := range []int{5, 10} {
		_, ok := FindApplicableTier(td, q)
		require.True(t, ok, "quantity %d", q)
	}
	for _, q := range []int{0, -1, 4, 11} {
		_, ok := FindApplicableTier(td, q)
		require.False(t, ok, "quantity %d", q)
	}

	open := &TieredDiscount{Enabled: true, Tiers: []Tier{{MinQuantity: 3, Type: KindAmount, Value: dec(1)}}}
	_, ok := FindApplicableTier(open, 100000)
	require.True(t, ok)

	_, ok = FindApplicableTier(&TieredDiscount{Enabled: true}, 3)
	require.False(t, ok)
	_, ok = FindApplicableTier(nil, 3)
	require.False(t, ok)
}

func TestFindApplicableTierFirstMatchWins(t *testing.T) {
	td := &TieredDiscount{Enabled: true, Tiers: []Tier{
		{MinQuantity: 5, MaxQuantity: intPtr(10), Type: KindPercentage, Value: dec(5)},
		{MinQuantity: 6, MaxQuantity: intPtr(20), Type: KindPercentage, Value: dec(30)},
	}}
	tier, ok := FindApplicableTier(td, 7)
	require.True(t, ok)
	require.True(t, tier.Value.Equal(dec(5)))

	item := Item{
		UnitPrice: 10000,
		Fixed:     &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(10)},
		Tiered:    td,
	}
	res := Calculate(item, 7, fixedNow)
	require.Equal(t, SourceFixed, res.Source)
	require.Equal(t, Money(1000), res.DiscountAmount)
}

func TestCalculateZeroPriceGuard(t *testing.T) {
	item := Item{UnitPrice: 0, Fixed: &FixedDiscount{Enabled: true, Type: KindAmount, Value: dec(500)}}
	res := Calculate(item, 1, fixedNow)
	require.Equal(t, Money(0), res.DiscountedPrice)
	require.Zero(t, res.DiscountPercentage)

	pct := Item{UnitPrice: 0, Fixed: &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(50)}}
	res = Calculate(pct, 1, fixedNow)
	require.Equal(t, Money(0), res.DiscountedPrice)
	require.Zero(t, res.DiscountPercentage)
}

func TestCalculateBadges(t *testing.T) {
	item := Item{UnitPrice: 10000, Fixed: &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(15)}}
	res := Calculate(item, 1, fixedNow)
	require.Equal(t, "15% OFF", *res.Badge)

	frac := Item{UnitPrice: 10000, Fixed: &FixedDiscount{Enabled: true, Type: KindPercentage, Value: decimal.RequireFromString("12.5")}}
	res = Calculate(frac, 1, fixedNow)
	require.Equal(t, "12.5% OFF", *res.Badge)
	require.Equal(t, Money(1250), res.DiscountAmount)

	tiered := Item{UnitPrice: 10000, Tiered: &TieredDiscount{Enabled: true, Tiers: []Tier{{MinQuantity: 6, Type: KindPercentage, Value: dec(10)}}}}
	res = Calculate(tiered, 8, fixedNow)
	require.Equal(t, "8+ unidades", *res.Badge)
}

func TestCalculateRoundsFractionalAmounts(t *testing.T) {
	item := Item{UnitPrice: 999, Fixed: &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(15)}}
	res := Calculate(item, 1, fixedNow)
	require.Equal(t, Money(150), res.DiscountAmount)
	require.Equal(t, Money(849), res.DiscountedPrice)
	require.Equal(t, 15.0, res.DiscountPercentage)
}

func TestCalculateEndToEndTierBeatsFixed(t *testing.T) {
	item := Item{
		UnitPrice: 5000,
		Fixed:     &FixedDiscount{Enabled: true, Type: KindPercentage, Value: dec(10)},
		Tiered: &TieredDiscount{Enabled: true, Tiers: []Tier{
			{MinQuantity: 3, Type: KindAmount, Value: dec(1000)},
		}},
	}
	res := Calculate(item, 3, fixedNow)
	require.True(t, res.HasDiscount)
	require.Equal(t, Money(1000), res.DiscountAmount)
	require.Equal(t, Money(4000), res.DiscountedPrice)
	require.Equal(t, 20.0, res.DiscountPercentage)
	require.Equal(t, "3+ unidades", *res.Badge)
}

func TestEnginePriceByQuantityUsesClock(t *testing.T) {
	item := Item{
		UnitPrice: 5000,
		Fixed: &FixedDiscount{
			Enabled:   true,
			Type:      KindPercentage,
			Value:     dec(10),
			StartDate: timePtr(fixedNow.Add(-time.Hour)),
			EndDate:   timePtr(fixedNow.Add(time.Hour)),
		},
	}
	now := fixedNow
	engine := NewEngine(func() time.Time { return now })

	quote := engine.PriceByQuantity(item, 4)
	require.Equal(t, Money(5000), quote.UnitPrice)
	require.Equal(t, Money(4500), quote.DiscountedPrice)
	require.Equal(t, Money(18000), quote.LineTotal)
	require.Equal(t, 4, quote.Quantity)
	require.Equal(t, "10% OFF", *quote.Badge)

	now = fixedNow.Add(2 * time.Hour)
	quote = engine.PriceByQuantity(item, 4)
	require.Equal(t, Money(20000), quote.LineTotal)
	require.Nil(t, quote.Badge)
}

func TestTierPreview(t *testing.T) {
	item := Item{
		UnitPrice: 4000,
		Tiered: &TieredDiscount{Enabled: true, Tiers: []Tier{
			{MinQuantity: 6, Type: KindPercentage, Value: dec(10)},
			{MinQuantity: 3, MaxQuantity: intPtr(5), Type: KindAmount, Value: dec(5000)},
		}},
	}
	banners := TierPreview(item)
	require.Len(t, banners, 2)
	require.Equal(t, 6, banners[0].MinQuantity)
	require.Equal(t, Money(3600), banners[0].UnitPrice)
	require.Equal(t, "6+ unidades: 10% OFF", banners[0].Label)
	require.Equal(t, Money(0), banners[1].UnitPrice)
	require.Equal(t, "3+ unidades: $5000 OFF", banners[1].Label)

	item.Tiered.Enabled = false
	require.Nil(t, TierPreview(item))
}
