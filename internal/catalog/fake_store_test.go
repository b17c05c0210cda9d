package catalog_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/discount"
)

type fakeStore struct {
	mu           sync.Mutex
	products     map[uuid.UUID]catalog.Product
	variants     map[uuid.UUID]catalog.Variant
	order        []uuid.UUID
	variantReads int
	failSKU      string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[uuid.UUID]catalog.Product{},
		variants: map[uuid.UUID]catalog.Variant{},
	}
}

func (f *fakeStore) CreateProduct(_ context.Context, p catalog.Product) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.products {
		if existing.Slug == p.Slug {
			return catalog.Product{}, catalog.ErrConflict
		}
	}
	p.CreatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeStore) GetProductBySlug(_ context.Context, slug string) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

func (f *fakeStore) GetProductByID(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) CreateVariant(_ context.Context, v catalog.Variant) (catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSKU != "" && v.SKU == f.failSKU {
		return catalog.Variant{}, context.DeadlineExceeded
	}
	for _, existing := range f.variants {
		if existing.SKU == v.SKU {
			return catalog.Variant{}, catalog.ErrConflict
		}
	}
	v.CreatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	v.UpdatedAt = v.CreatedAt
	f.variants[v.ID] = v
	f.order = append(f.order, v.ID)
	return v, nil
}

func (f *fakeStore) GetVariant(_ context.Context, id uuid.UUID) (catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.variantReads++
	v, ok := f.variants[id]
	if !ok {
		return catalog.Variant{}, catalog.ErrNotFound
	}
	return v, nil
}

func (f *fakeStore) ListVariantsByProduct(_ context.Context, productID uuid.UUID) ([]catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []catalog.Variant
	for _, id := range f.order {
		if v := f.variants[id]; v.ProductID == productID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateVariantDiscounts(_ context.Context, id uuid.UUID, fixed *discount.FixedDiscount, tiered *discount.TieredDiscount) (catalog.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.variants[id]
	if !ok {
		return catalog.Variant{}, catalog.ErrNotFound
	}
	v.FixedDiscount = fixed
	v.TieredDiscount = tiered
	f.variants[id] = v
	return v, nil
}

func (f *fakeStore) reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.variantReads
}

func (f *fakeStore) seedProduct(name, slug string) catalog.Product {
	p := catalog.Product{ID: uuid.New(), Name: name, Slug: slug, Active: true}
	out, _ := f.CreateProduct(context.Background(), p)
	return out
}

func (f *fakeStore) seedVariant(v catalog.Variant) catalog.Variant {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	out, _ := f.CreateVariant(context.Background(), v)
	return out
}
