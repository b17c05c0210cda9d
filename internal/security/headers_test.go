package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(h Headers, req *http.Request) *httptest.ResponseRecorder {
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestHeadersMiddlewareSetsSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "https://api.dulceria.test/api/v1/variants/x", nil)
	req.TLS = &tls.ConnectionState{}

	rr := serve(Headers{Enable: true, EnableHSTS: true, HSTSMaxAge: 600}, req)

	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected nosniff header, got %q", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); got == "" {
		t.Fatal("expected content security policy")
	}
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=600; includeSubDomains" {
		t.Fatalf("unexpected hsts header %q", got)
	}
}

func TestHeadersMiddlewareHSTSBehindProxy(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.dulceria.test/", nil)
	req.Header.Set("X-Forwarded-Proto", "HTTPS")

	rr := serve(Headers{Enable: true, EnableHSTS: true}, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Fatalf("unexpected hsts header %q", got)
	}

	plain := serve(Headers{Enable: true, EnableHSTS: true}, httptest.NewRequest(http.MethodGet, "http://api.dulceria.test/", nil))
	if plain.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("hsts must not be sent over plain http")
	}
}

func TestHeadersMiddlewareDisabled(t *testing.T) {
	rr := serve(Headers{Enable: false, EnableHSTS: true}, httptest.NewRequest(http.MethodGet, "http://api.dulceria.test/", nil))
	if rr.Header().Get("X-Content-Type-Options") != "" {
		t.Fatal("expected no security headers when disabled")
	}
}
