package catalog

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry as served by the remote catalog. It is never
// mutated after it has been fetched.
type Product struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Image       string          `json:"image"`
	Rating      Rating          `json:"rating"`
}

// Rating summarises shopper reviews for a product.
type Rating struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

// Service is the read-only catalog surface used by the storefront.
type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int) (*Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]Product, error)
	ListCategories(ctx context.Context) ([]string, error)
}

// valid reports whether the remote payload satisfies the product invariants.
func (p Product) valid() bool {
	if p.ID <= 0 || p.Price.IsNegative() {
		return false
	}
	if p.Rating.Rate < 0 || p.Rating.Rate > 5 || p.Rating.Count < 0 {
		return false
	}
	return true
}

// CategoryTitle turns a category slug into a display label ("jewelery" -> "Jewelery").
func CategoryTitle(slug string) string {
	trimmed := strings.TrimSpace(slug)
	if trimmed == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(r)) + trimmed[size:]
}
