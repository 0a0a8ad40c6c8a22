package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type addRequest struct {
	ProductID int  `json:"product_id" validate:"required,min=1"`
	Quantity  *int `json:"quantity" validate:"omitempty,min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	var req addRequest
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":3,"quantity":2}`))
	if err := DecodeJSONBody(r, &req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.ProductID != 3 || req.Quantity == nil || *req.Quantity != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestDecodeJSONBodyRejects(t *testing.T) {
	for _, body := range []string{`{"product_id":0}`, `{"product_id":1,"quantity":0}`, `{"product_id":1,"extra":true}`, `not json`} {
		var req addRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		if err := DecodeJSONBody(r, &req); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("body %s: expected validation error, got %v", body, err)
		}
	}
}

func withParam(key, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rc))
}

func TestParsePathID(t *testing.T) {
	id, err := ParsePathID(withParam("productId", "12"), "productId")
	if err != nil || id != 12 {
		t.Fatalf("expected 12, got %d %v", id, err)
	}
	for _, raw := range []string{"", "abc", "0", "-4"} {
		if _, err := ParsePathID(withParam("productId", raw), "productId"); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
			t.Fatalf("%q: expected validation error, got %v", raw, err)
		}
	}
}
