package audit

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerList(t *testing.T) {
	store := &stubStore{entries: []Entry{{Action: "TEST", Method: "GET"}}, total: 31}
	h := Handler{Store: store}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/audit-logs?page=2&limit=25", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if store.limit != 25 || store.offset != 25 {
		t.Fatalf("unexpected pagination params: %d/%d", store.limit, store.offset)
	}
	if rr.Header().Get("X-Total-Count") != "31" {
		t.Fatalf("unexpected total header: %s", rr.Header().Get("X-Total-Count"))
	}
	var payload struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			TotalItems int `json:"total_items"`
		} `json:"pagination"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 || payload.Pagination.Page != 2 || payload.Pagination.TotalItems != 31 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestHandlerListFailures(t *testing.T) {
	rr := httptest.NewRecorder()
	Handler{}.List(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 without store, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	Handler{Store: &stubStore{err: errors.New("boom")}}.List(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on store error, got %d", rr.Code)
	}
}
