package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dulceria-api/internal/common"
	"github.com/noah-isme/dulceria-api/internal/discount"
	"github.com/noah-isme/dulceria-api/internal/obs"
)

// Locker serialises writes that share a key.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const discountLockTTL = 5 * time.Second

// Service orchestrates catalog persistence, caching, and discount annotation.
type Service struct {
	store             Store
	cache             *Cache
	locker            Locker
	engine            *discount.Engine
	lowStockThreshold int
	logger            zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store             Store
	Cache             *Cache
	Locker            Locker
	Engine            *discount.Engine
	LowStockThreshold int
	Logger            zerolog.Logger
}

// NewService constructs a catalog Service.
func NewService(cfg ServiceConfig) *Service {
	engine := cfg.Engine
	if engine == nil {
		engine = discount.NewEngine(nil)
	}
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = DefaultLowStockThreshold
	}
	return &Service{
		store:             cfg.Store,
		cache:             cfg.Cache,
		locker:            cfg.Locker,
		engine:            engine,
		lowStockThreshold: threshold,
		logger:            cfg.Logger,
	}
}

// Variant returns the raw variant, reading through the cache.
func (s *Service) Variant(ctx context.Context, id uuid.UUID) (Variant, error) {
	key := variantCacheKey(id.String())
	var cached Variant
	ok, err := s.cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		obs.ObserveCache("error")
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	case ok:
		obs.ObserveCache("hit")
		return cached, nil
	default:
		obs.ObserveCache("miss")
	}

	v, err := s.store.GetVariant(ctx, id)
	if err != nil {
		return Variant{}, s.storeError(err, "variant not found", "load variant")
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return v, nil
}

// GetVariant returns the annotated view of a variant priced for a single unit.
func (s *Service) GetVariant(ctx context.Context, id uuid.UUID) (VariantView, error) {
	v, err := s.Variant(ctx, id)
	if err != nil {
		return VariantView{}, err
	}
	return s.Annotate(v), nil
}

// QuoteVariant prices quantity units of a variant.
func (s *Service) QuoteVariant(ctx context.Context, id uuid.UUID, quantity int) (discount.PriceBreakdown, error) {
	if quantity < 1 {
		return discount.PriceBreakdown{}, common.BadRequest("quantity", "quantity must be at least 1", nil)
	}
	v, err := s.Variant(ctx, id)
	if err != nil {
		return discount.PriceBreakdown{}, err
	}
	breakdown := s.engine.PriceByQuantity(v.PricedItem(), quantity)
	obs.ObserveDiscount(string(breakdown.Source))
	return breakdown, nil
}

// GetProduct loads a product by slug.
func (s *Service) GetProduct(ctx context.Context, slug string) (Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return Product{}, common.BadRequest("slug", "slug is required", nil)
	}
	p, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return Product{}, s.storeError(err, "product not found", "load product")
	}
	return p, nil
}

// ProductWithVariants loads a product by slug together with its annotated variants.
func (s *Service) ProductWithVariants(ctx context.Context, slug string) (ProductDetail, error) {
	p, err := s.GetProduct(ctx, slug)
	if err != nil {
		return ProductDetail{}, err
	}
	variants, err := s.productVariants(ctx, p.ID)
	if err != nil {
		return ProductDetail{}, err
	}
	detail := ProductDetail{Product: p, Variants: make([]VariantView, 0, len(variants))}
	for _, v := range variants {
		detail.Variants = append(detail.Variants, s.Annotate(v))
	}
	return detail, nil
}

func (s *Service) productVariants(ctx context.Context, productID uuid.UUID) ([]Variant, error) {
	key := productVariantsCacheKey(productID.String())
	var cached []Variant
	ok, err := s.cache.GetJSON(ctx, key, &cached)
	switch {
	case err != nil:
		obs.ObserveCache("error")
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
	case ok:
		obs.ObserveCache("hit")
		return cached, nil
	default:
		obs.ObserveCache("miss")
	}

	variants, err := s.store.ListVariantsByProduct(ctx, productID)
	if err != nil {
		return nil, s.storeError(err, "product not found", "list variants")
	}
	if err := s.cache.SetJSON(ctx, key, variants); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return variants, nil
}

// Annotate derives stock flags, the single-unit discount, and the tier preview.
func (s *Service) Annotate(v Variant) VariantView {
	item := v.PricedItem()
	result := s.engine.Calculate(item, 1)
	obs.ObserveDiscount(string(result.Source))
	return VariantView{
		ID:             v.ID,
		ProductID:      v.ProductID,
		SKU:            v.SKU,
		Name:           v.Name,
		Price:          v.Price,
		Stock:          v.Stock,
		InStock:        InStock(v),
		LowStock:       LowStock(v, s.lowStockThreshold),
		Active:         v.Active,
		FixedDiscount:  v.FixedDiscount,
		TieredDiscount: v.TieredDiscount,
		Discount:       result,
		Tiers:          discount.TierPreview(item),
	}
}

// CreateProduct validates and stores a product. The slug defaults to the slugified name.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := Validate(in); err != nil {
		return Product{}, err
	}
	slug := slugify(in.Slug)
	if slug == "" {
		slug = slugify(in.Name)
	}
	if slug == "" {
		return Product{}, common.BadRequest("slug", "slug could not be derived from name", nil)
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	p, err := s.store.CreateProduct(ctx, Product{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Color:       strings.ToLower(strings.TrimSpace(in.Color)),
		Active:      active,
	})
	if err != nil {
		return Product{}, s.storeError(err, "product not found", "create product")
	}
	return p, nil
}

// CreateVariant validates and stores a single variant.
func (s *Service) CreateVariant(ctx context.Context, in VariantInput) (VariantView, error) {
	if err := Validate(in); err != nil {
		return VariantView{}, err
	}
	v, err := s.createVariant(ctx, in)
	if err != nil {
		return VariantView{}, err
	}
	return s.Annotate(v), nil
}

func (s *Service) createVariant(ctx context.Context, in VariantInput) (Variant, error) {
	productID, err := uuid.Parse(in.ProductID)
	if err != nil {
		return Variant{}, common.BadRequest("productId", "invalid product id", err)
	}
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return Variant{}, s.storeError(err, "product not found", "load product")
	}
	active := true
	if in.Active != nil {
		active = *in.Active
	}
	v := Variant{
		ID:                uuid.New(),
		ProductID:         productID,
		SKU:               strings.ToUpper(strings.TrimSpace(in.SKU)),
		Name:              strings.TrimSpace(in.Name),
		Price:             in.Price,
		Stock:             in.Stock,
		LowStockThreshold: in.LowStockThreshold,
		Active:            active,
	}
	if in.FixedDiscount != nil {
		v.FixedDiscount = in.FixedDiscount.toDomain()
	}
	if in.TieredDiscount != nil {
		v.TieredDiscount = in.TieredDiscount.toDomain()
	}
	stored, err := s.store.CreateVariant(ctx, v)
	if err != nil {
		return Variant{}, s.storeError(err, "product not found", "create variant")
	}
	s.invalidate(ctx, stored)
	return stored, nil
}

// BatchCreateVariants creates every row that validates and stores, collecting
// failures by input index instead of aborting.
func (s *Service) BatchCreateVariants(ctx context.Context, productID uuid.UUID, rows []VariantInput) (BatchResult, error) {
	if len(rows) == 0 {
		return BatchResult{}, common.BadRequest("variants", "at least one variant is required", nil)
	}
	if _, err := s.store.GetProductByID(ctx, productID); err != nil {
		return BatchResult{}, s.storeError(err, "product not found", "load product")
	}
	result := BatchResult{Created: []VariantView{}, Failed: []BatchFailure{}}
	for i, row := range rows {
		if row.ProductID == "" {
			row.ProductID = productID.String()
		}
		if row.ProductID != productID.String() {
			result.Failed = append(result.Failed, BatchFailure{Index: i, Error: "productId does not match the target product"})
			continue
		}
		if err := Validate(row); err != nil {
			result.Failed = append(result.Failed, batchFailure(i, err))
			continue
		}
		v, err := s.createVariant(ctx, row)
		if err != nil {
			result.Failed = append(result.Failed, batchFailure(i, err))
			continue
		}
		result.Created = append(result.Created, s.Annotate(v))
	}
	obs.ObserveBatch(len(result.Created), len(result.Failed))
	s.logger.Info().
		Str("product_id", productID.String()).
		Int("created", len(result.Created)).
		Int("failed", len(result.Failed)).
		Msg("variant batch processed")
	return result, nil
}

// UpdateVariantDiscounts replaces the discount sub-documents of a variant.
func (s *Service) UpdateVariantDiscounts(ctx context.Context, id uuid.UUID, in DiscountsInput) (VariantView, error) {
	if err := Validate(in); err != nil {
		return VariantView{}, err
	}
	var (
		fixed  *discount.FixedDiscount
		tiered *discount.TieredDiscount
	)
	if in.FixedDiscount != nil {
		fixed = in.FixedDiscount.toDomain()
	}
	if in.TieredDiscount != nil {
		tiered = in.TieredDiscount.toDomain()
	}
	var (
		v        Variant
		storeErr error
	)
	update := func(ctx context.Context) error {
		v, storeErr = s.store.UpdateVariantDiscounts(ctx, id, fixed, tiered)
		if storeErr == nil {
			// invalidate before releasing so a concurrent writer cannot
			// observe a stale cache entry after its own update
			s.invalidate(ctx, v)
		}
		return nil
	}
	if s.locker == nil {
		_ = update(ctx)
	} else if err := s.locker.WithLock(ctx, "variant-discounts:"+id.String(), discountLockTTL, update); err != nil {
		s.logger.Warn().Err(err).Str("variant_id", id.String()).Msg("variant discount lock not acquired")
		return VariantView{}, common.NewAppError("LOCKED", "variant is being updated, retry later", http.StatusServiceUnavailable, err)
	}
	if storeErr != nil {
		return VariantView{}, s.storeError(storeErr, "variant not found", "update variant discounts")
	}
	return s.Annotate(v), nil
}

func (s *Service) invalidate(ctx context.Context, v Variant) {
	keys := []string{variantCacheKey(v.ID.String()), productVariantsCacheKey(v.ProductID.String())}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("catalog cache invalidation failed")
	}
}

func (s *Service) storeError(err error, notFound, op string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return common.NotFound(notFound, err)
	case errors.Is(err, ErrConflict):
		return common.Conflict("resource already exists", err)
	}
	s.logger.Error().Err(err).Str("op", op).Msg("catalog store failure")
	return common.NewAppError("INTERNAL", "internal error", http.StatusInternalServerError, fmt.Errorf("%s: %w", op, err))
}

func batchFailure(index int, err error) BatchFailure {
	failure := BatchFailure{Index: index, Error: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		failure.Error = appErr.Message
		failure.Details = appErr.Details
	}
	return failure
}
