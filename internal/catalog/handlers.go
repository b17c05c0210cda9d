package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/dulceria-api/internal/common"
)

// Handler exposes catalog endpoints.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// ProductDetail handles GET /api/v1/products/{slug}.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	detail, err := h.service.ProductWithVariants(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, detail)
}

// VariantDetail handles GET /api/v1/variants/{id}.
func (h *Handler) VariantDetail(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.GetVariant(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

// VariantPrice handles GET /api/v1/variants/{id}/price?quantity=N.
func (h *Handler) VariantPrice(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	quantity, err := common.PositiveIntParam("quantity", r.URL.Query().Get("quantity"), 1)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	breakdown, err := h.service.QuoteVariant(r.Context(), id, quantity)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, breakdown)
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, product)
}

// CreateVariant handles POST /api/v1/admin/variants.
func (h *Handler) CreateVariant(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	var in VariantInput
	if err := decodeJSON(w, r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.CreateVariant(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, view)
}

// BatchCreateVariants handles POST /api/v1/admin/products/{id}/variants/batch.
// Rows are validated one by one so the envelope itself only checks its size.
func (h *Handler) BatchCreateVariants(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	productID, err := uuidParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var in BatchInput
	if err := decodeJSON(w, r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.service.BatchCreateVariants(r.Context(), productID, in.Variants)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if len(result.Created) == 0 {
		status = http.StatusUnprocessableEntity
	} else if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	common.Data(w, status, result)
}

// UpdateDiscounts handles PUT /api/v1/admin/variants/{id}/discounts.
func (h *Handler) UpdateDiscounts(w http.ResponseWriter, r *http.Request) {
	if !h.ready(w) {
		return
	}
	id, err := uuidParam(r, "id")
	if err != nil {
		common.WriteError(w, err)
		return
	}
	var in DiscountsInput
	if err := decodeJSON(w, r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	view, err := h.service.UpdateVariantDiscounts(r.Context(), id, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, view)
}

func (h *Handler) ready(w http.ResponseWriter) bool {
	if h == nil || h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return false
	}
	return true
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, common.BadRequest(name, "invalid "+name, err)
	}
	return id, nil
}
