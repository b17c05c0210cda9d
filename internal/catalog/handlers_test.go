package catalog_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/discount"
)

type envelope[T any] struct {
	Data T `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func newTestRouter(h *catalog.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/v1/products/{slug}", h.ProductDetail)
	r.Get("/api/v1/variants/{id}", h.VariantDetail)
	r.Get("/api/v1/variants/{id}/price", h.VariantPrice)
	r.Post("/api/v1/admin/products", h.CreateProduct)
	r.Post("/api/v1/admin/variants", h.CreateVariant)
	r.Post("/api/v1/admin/products/{id}/variants/batch", h.BatchCreateVariants)
	r.Put("/api/v1/admin/variants/{id}/discounts", h.UpdateDiscounts)
	return r
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCatalogHandlers(t *testing.T) {
	store := newFakeStore()
	product := store.seedProduct("Bombones", "bombones")
	v := store.seedVariant(tieredChocolate(product.ID))
	svc, _ := newTestService(t, store, nil)
	router := newTestRouter(catalog.NewHandler(catalog.HandlerConfig{Service: svc}))

	t.Run("product detail", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/products/bombones", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp envelope[catalog.ProductDetail]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "bombones", resp.Data.Slug)
		require.Len(t, resp.Data.Variants, 1)
		require.Equal(t, int64(4500), resp.Data.Variants[0].Discount.DiscountedPrice)
	})

	t.Run("product not found", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/products/nope", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		var resp errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("variant detail", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/variants/"+v.ID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp envelope[catalog.VariantView]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.True(t, resp.Data.InStock)
		require.True(t, resp.Data.Discount.HasDiscount)
		require.Len(t, resp.Data.Tiers, 2)
	})

	t.Run("variant detail bad id", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/variants/not-a-uuid", "")
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "id", resp.Error.Details["field"])
	})

	t.Run("price by quantity", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/variants/"+v.ID.String()+"/price?quantity=6", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp envelope[discount.PriceBreakdown]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, int64(3500), resp.Data.DiscountedPrice)
		require.Equal(t, int64(21000), resp.Data.LineTotal)
		require.Equal(t, 30.0, resp.Data.DiscountPercentage)
		require.Equal(t, "6+ unidades", *resp.Data.Badge)
	})

	t.Run("price defaults to one unit", func(t *testing.T) {
		rec := serve(router, http.MethodGet, "/api/v1/variants/"+v.ID.String()+"/price", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp envelope[discount.PriceBreakdown]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Data.Quantity)
		require.Equal(t, int64(4500), resp.Data.LineTotal)
	})

	t.Run("price rejects bad quantity", func(t *testing.T) {
		for _, q := range []string{"0", "-2", "abc"} {
			rec := serve(router, http.MethodGet, "/api/v1/variants/"+v.ID.String()+"/price?quantity="+q, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, q)
		}
	})

	t.Run("create product", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/api/v1/admin/products", `{"name":"Turrón de Maní","category":"turrones"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp envelope[catalog.Product]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "turron-de-mani", resp.Data.Slug)
	})

	t.Run("create product rejects unknown fields", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/api/v1/admin/products", `{"name":"Turrón","price":1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})

	t.Run("create variant validation", func(t *testing.T) {
		body := `{"productId":"` + product.ID.String() + `","sku":"CHOC-1","name":"Tableta","price":3000,
			"fixedDiscount":{"enabled":true,"type":"percentage","value":150}}`
		rec := serve(router, http.MethodPost, "/api/v1/admin/variants", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "VALIDATION_FAILED", resp.Error.Code)
		require.Equal(t, "must be at most 100", resp.Error.Details["fixedDiscount.value"])
	})

	t.Run("create variant", func(t *testing.T) {
		body := `{"productId":"` + product.ID.String() + `","sku":"choc-2","name":"Tableta","price":3000,"stock":40,
			"fixedDiscount":{"enabled":true,"type":"amount","value":500,"badge":"Oferta"}}`
		rec := serve(router, http.MethodPost, "/api/v1/admin/variants", body)
		require.Equal(t, http.StatusCreated, rec.Code)
		var resp envelope[catalog.VariantView]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, "CHOC-2", resp.Data.SKU)
		require.Equal(t, int64(2500), resp.Data.Discount.DiscountedPrice)
		require.Equal(t, "Oferta", *resp.Data.Discount.Badge)
		require.False(t, resp.Data.LowStock)
	})

	t.Run("batch create partial", func(t *testing.T) {
		body := `{"variants":[{"sku":"BATCH-1","name":"Uno","price":100},{"sku":"","name":"Dos","price":100}]}`
		rec := serve(router, http.MethodPost, "/api/v1/admin/products/"+product.ID.String()+"/variants/batch", body)
		require.Equal(t, http.StatusMultiStatus, rec.Code)
		var resp envelope[catalog.BatchResult]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Created, 1)
		require.Len(t, resp.Data.Failed, 1)
		require.Equal(t, 1, resp.Data.Failed[0].Index)
	})

	t.Run("batch create all failed", func(t *testing.T) {
		body := `{"variants":[{"sku":"BATCH-1","name":"Repetida","price":100}]}`
		rec := serve(router, http.MethodPost, "/api/v1/admin/products/"+product.ID.String()+"/variants/batch", body)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("batch create empty", func(t *testing.T) {
		rec := serve(router, http.MethodPost, "/api/v1/admin/products/"+product.ID.String()+"/variants/batch", `{"variants":[]}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update discounts", func(t *testing.T) {
		body := `{"fixedDiscount":null,"tieredDiscount":{"enabled":true,"tiers":[{"minQuantity":1,"type":"percentage","value":5}]}}`
		rec := serve(router, http.MethodPut, "/api/v1/admin/variants/"+v.ID.String()+"/discounts", body)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp envelope[catalog.VariantView]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Nil(t, resp.Data.FixedDiscount)
		require.Equal(t, int64(4750), resp.Data.Discount.DiscountedPrice)
		require.Equal(t, discount.SourceTiered, resp.Data.Discount.Source)
	})

	t.Run("update discounts unknown variant", func(t *testing.T) {
		rec := serve(router, http.MethodPut, "/api/v1/admin/variants/"+uuid.NewString()+"/discounts", `{}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCatalogHandlerWithoutService(t *testing.T) {
	h := catalog.NewHandler(catalog.HandlerConfig{})
	rec := httptest.NewRecorder()
	h.VariantDetail(rec, httptest.NewRequest(http.MethodGet, "/api/v1/variants/x", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
