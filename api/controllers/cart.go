package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/catalog"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/feedback"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// CartSessions resolves the cart store for a session.
type CartSessions interface {
	Open(ctx context.Context, sessionID string) (*cart.Store, error)
}

// FeedbackRegistry resolves the add-to-cart feedback controller for a session.
// Get creates one on first use; Lookup only finds an existing one.
type FeedbackRegistry interface {
	Get(sessionID string) *feedback.Controller
	Lookup(sessionID string) (*feedback.Controller, bool)
}

// currentPhase reports idle for sessions that never animated an add.
func currentPhase(feedbackReg FeedbackRegistry, sessionID string) feedback.Phase {
	if ctrl, ok := feedbackReg.Lookup(sessionID); ok {
		return ctrl.Phase()
	}
	return feedback.PhaseIdle
}

type addCartItemRequest struct {
	ProductID int  `json:"product_id" validate:"required,min=1"`
	Quantity  *int `json:"quantity" validate:"omitempty,min=1,max=999"`
}

type updateCartItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,max=999"`
}

func openCart(r *http.Request, sessions CartSessions) (*cart.Store, error) {
	return sessions.Open(r.Context(), middleware.CartSessionFromContext(r.Context()))
}

func writeCart(w http.ResponseWriter, store *cart.Store, pricing checkout.Pricing, phase feedback.Phase) {
	view := store.View()
	responses.WriteSuccess(w, cartResponse{
		Session:    store.SessionID(),
		Items:      newCartItems(view.Items),
		TotalItems: view.TotalItems,
		TotalPrice: money(view.TotalPrice),
		Quote:      newQuoteResponse(pricing.Quote(view.TotalPrice), pricing),
		Feedback:   phase,
	})
}

func GetCart(sessions CartSessions, feedbackReg FeedbackRegistry, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := openCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, store, svc.Pricing(), currentPhase(feedbackReg, store.SessionID()))
	}
}

// AddCartItem resolves the product from the catalog and adds it with the
// feedback animation running for the session.
func AddCartItem(sessions CartSessions, feedbackReg FeedbackRegistry, products catalog.Service, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}

		store, err := openCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := products.GetProduct(r.Context(), req.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctrl := feedbackReg.Get(store.SessionID())
		if err := ctrl.AddItemWithAnimation(r.Context(), store, cart.FromProduct(*product), quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, store, svc.Pricing(), ctrl.Phase())
	}
}

func UpdateCartItem(sessions CartSessions, feedbackReg FeedbackRegistry, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := openCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.UpdateQuantity(r.Context(), productID, *req.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, store, svc.Pricing(), currentPhase(feedbackReg, store.SessionID()))
	}
}

func RemoveCartItem(sessions CartSessions, feedbackReg FeedbackRegistry, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParsePathID(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store, err := openCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.RemoveItem(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, store, svc.Pricing(), currentPhase(feedbackReg, store.SessionID()))
	}
}

func ClearCart(sessions CartSessions, feedbackReg FeedbackRegistry, svc *checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, err := openCart(r, sessions)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeCart(w, store, svc.Pricing(), currentPhase(feedbackReg, store.SessionID()))
	}
}
