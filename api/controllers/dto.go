package controllers

import (
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/feedback"
	"github.com/shopspring/decimal"
)

// money renders an amount with two decimals, the only place amounts are rounded.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type ratingResponse struct {
	Rate  float64 `json:"rate"`
	Count int     `json:"count"`
}

type productResponse struct {
	ID            int            `json:"id"`
	Title         string         `json:"title"`
	Price         string         `json:"price"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	CategoryTitle string         `json:"category_title"`
	Image         string         `json:"image"`
	Rating        ratingResponse `json:"rating"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:            p.ID,
		Title:         p.Title,
		Price:         money(p.Price),
		Description:   p.Description,
		Category:      p.Category,
		CategoryTitle: catalog.CategoryTitle(p.Category),
		Image:         p.Image,
		Rating:        ratingResponse{Rate: p.Rating.Rate, Count: p.Rating.Count},
	}
}

func newProductList(products []catalog.Product) []productResponse {
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, newProductResponse(p))
	}
	return out
}

type categoryResponse struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

type cartItemResponse struct {
	ProductID int    `json:"product_id"`
	Title     string `json:"title"`
	Price     string `json:"price"`
	Image     string `json:"image"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
}

func newCartItems(items []cart.Item) []cartItemResponse {
	out := make([]cartItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, cartItemResponse{
			ProductID: item.ProductID,
			Title:     item.Title,
			Price:     money(item.Price),
			Image:     item.Image,
			Quantity:  item.Quantity,
			Subtotal:  money(item.Subtotal()),
		})
	}
	return out
}

type quoteResponse struct {
	Subtotal              string `json:"subtotal"`
	Shipping              string `json:"shipping"`
	Tax                   string `json:"tax"`
	Total                 string `json:"total"`
	FreeShipping          bool   `json:"free_shipping"`
	FreeShippingThreshold string `json:"free_shipping_threshold"`
}

func newQuoteResponse(q checkout.Quote, pricing checkout.Pricing) quoteResponse {
	return quoteResponse{
		Subtotal:              money(q.Subtotal),
		Shipping:              money(q.Shipping),
		Tax:                   money(q.Tax),
		Total:                 money(q.Total),
		FreeShipping:          q.Shipping.IsZero(),
		FreeShippingThreshold: money(pricing.FreeShippingThreshold),
	}
}

type cartResponse struct {
	Session    string             `json:"session"`
	Items      []cartItemResponse `json:"items"`
	TotalItems int                `json:"total_items"`
	TotalPrice string             `json:"total_price"`
	Quote      quoteResponse      `json:"quote"`
	Feedback   feedback.Phase     `json:"feedback"`
}

type feedbackResponse struct {
	Phase feedback.Phase `json:"phase"`
	Busy  bool           `json:"busy"`
}

type orderResponse struct {
	OrderID   string                   `json:"order_id"`
	Items     []cartItemResponse       `json:"items"`
	Quote     quoteResponse            `json:"quote"`
	Shipping  checkout.ShippingAddress `json:"shipping"`
	CardLast4 string                   `json:"card_last4"`
	PlacedAt  time.Time                `json:"placed_at"`
}

func newOrderResponse(o *checkout.Order, pricing checkout.Pricing) orderResponse {
	return orderResponse{
		OrderID:   o.ID,
		Items:     newCartItems(o.Items),
		Quote:     newQuoteResponse(o.Quote, pricing),
		Shipping:  o.Shipping,
		CardLast4: o.CardLast4,
		PlacedAt:  o.PlacedAt,
	}
}
