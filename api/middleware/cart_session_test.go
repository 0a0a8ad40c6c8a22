package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestCartSessionMintsWhenAbsent(t *testing.T) {
	var seen string
	handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected minted uuid, got %q", seen)
	}
	if rec.Header().Get(CartSessionHeader) != seen {
		t.Fatalf("expected session echoed, got %q", rec.Header().Get(CartSessionHeader))
	}
}

func TestCartSessionKeepsProvided(t *testing.T) {
	id := uuid.NewString()
	var seen string
	handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CartSessionFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(CartSessionHeader, id)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Fatalf("expected %s, got %s", id, seen)
	}
}

func TestCartSessionRejectsMalformed(t *testing.T) {
	called := false
	handler := CartSession(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(CartSessionHeader, "../../etc/passwd")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if called || rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without calling handler, got %d called=%v", rec.Code, called)
	}
}
