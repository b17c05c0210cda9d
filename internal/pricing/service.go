package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/common"
	"github.com/noah-isme/dulceria-api/internal/discount"
	"github.com/noah-isme/dulceria-api/internal/obs"
)

// VariantSource resolves raw catalog variants.
type VariantSource interface {
	Variant(ctx context.Context, id uuid.UUID) (catalog.Variant, error)
}

// Line is a requested (variant, quantity) pair.
type Line struct {
	VariantID uuid.UUID
	Quantity  int
}

// QuoteLine is one priced line of a quote.
type QuoteLine struct {
	VariantID uuid.UUID               `json:"variantId"`
	SKU       string                  `json:"sku"`
	Name      string                  `json:"name"`
	Available bool                    `json:"available"`
	Pricing   discount.PriceBreakdown `json:"pricing"`
}

// Quote is the priced cart.
type Quote struct {
	Currency string      `json:"currency"`
	Lines    []QuoteLine `json:"lines"`
	Summary  Summary     `json:"summary"`
}

// Service prices carts with the discount engine.
type Service struct {
	variants VariantSource
	engine   *discount.Engine
	taxBps   int
	currency string
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Variants VariantSource
	Engine   *discount.Engine
	TaxBps   int
	Currency string
	Logger   zerolog.Logger
}

// NewService constructs a pricing Service.
func NewService(cfg ServiceConfig) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = discount.NewEngine(nil)
	}
	currency := cfg.Currency
	if currency == "" {
		currency = "PYG"
	}
	return &Service{
		variants: cfg.Variants,
		engine:   engine,
		taxBps:   cfg.TaxBps,
		currency: currency,
		logger:   cfg.Logger,
	}
}

// Quote prices every line and aggregates the cart totals. Lines for the same
// variant are merged first so quantity tiers see the combined quantity.
func (s *Service) Quote(ctx context.Context, lines []Line, shipping Money) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, common.BadRequest("items", "at least one item is required", nil)
	}
	merged := mergeLines(lines)
	quote := Quote{Currency: s.currency, Lines: make([]QuoteLine, 0, len(merged))}
	items := make([]Item, 0, len(merged))
	for i, line := range merged {
		if line.Quantity < 1 {
			return Quote{}, common.BadRequest(fmt.Sprintf("items[%d].quantity", i), "quantity must be at least 1", nil)
		}
		v, err := s.variants.Variant(ctx, line.VariantID)
		if err != nil {
			var appErr *common.AppError
			if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound {
				return Quote{}, common.NotFound(fmt.Sprintf("variant %s not found", line.VariantID), err)
			}
			return Quote{}, err
		}
		if !v.Active {
			return Quote{}, common.BadRequest("variantId", fmt.Sprintf("variant %s is not available", v.ID), nil)
		}
		breakdown := s.engine.PriceByQuantity(v.PricedItem(), line.Quantity)
		obs.ObserveDiscount(string(breakdown.Source))
		quote.Lines = append(quote.Lines, QuoteLine{
			VariantID: v.ID,
			SKU:       v.SKU,
			Name:      v.Name,
			Available: v.Stock >= line.Quantity,
			Pricing:   breakdown,
		})
		items = append(items, Item{
			Qty:          line.Quantity,
			UnitPrice:    breakdown.UnitPrice,
			UnitDiscount: breakdown.UnitPrice - breakdown.DiscountedPrice,
		})
	}
	quote.Summary = Compute(items, s.taxBps, shipping)
	s.logger.Debug().
		Int("lines", len(quote.Lines)).
		Int64("total", quote.Summary.Total).
		Msg("cart quoted")
	return quote, nil
}

func mergeLines(lines []Line) []Line {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.VariantID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.VariantID] = len(out)
		out = append(out, line)
	}
	return out
}
