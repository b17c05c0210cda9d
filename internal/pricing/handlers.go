package pricing

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/noah-isme/dulceria-api/internal/catalog"
	"github.com/noah-isme/dulceria-api/internal/common"
)

// QuoteRequest is the body of POST /api/v1/cart/quote.
type QuoteRequest struct {
	Items    []QuoteItem `json:"items" validate:"required,min=1,max=100,dive"`
	Shipping int64       `json:"shipping" validate:"gte=0"`
}

// QuoteItem is one requested cart line.
type QuoteItem struct {
	VariantID string `json:"variantId" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gte=1,lte=10000"`
}

// Handler exposes the cart quote endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Quote handles POST /api/v1/cart/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing service not configured", nil)
		return
	}
	var req QuoteRequest
	if err := common.DecodeJSON(w, r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	if err := catalog.Validate(req); err != nil {
		common.WriteError(w, err)
		return
	}
	lines := make([]Line, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, Line{VariantID: uuid.MustParse(item.VariantID), Quantity: item.Quantity})
	}
	quote, err := h.service.Quote(r.Context(), lines, req.Shipping)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, quote)
}
