package checkout

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

const (
	orderIDLength          = 9
	DefaultProcessingDelay = 2 * time.Second

	outcomePlaced    = "placed"
	outcomeInvalid   = "invalid"
	outcomeEmptyCart = "empty_cart"
	outcomeCancelled = "cancelled"
	outcomeFailed    = "failed"
)

// CartStore is the cart surface checkout reads and deducts ordered lines from.
type CartStore interface {
	View() cart.View
	Deduct(ctx context.Context, lines []cart.Item) error
}

// Order is the confirmation of a placed checkout. Orders are not persisted.
type Order struct {
	ID        string
	Items     []cart.Item
	Quote     Quote
	Shipping  ShippingAddress
	CardLast4 string
	PlacedAt  time.Time
}

// NewOrderID returns 9 upper-case base-36 characters.
func NewOrderID() string {
	id := uuid.New()
	encoded := new(big.Int).SetBytes(id[:]).Text(36)
	if len(encoded) < orderIDLength {
		encoded = strings.Repeat("0", orderIDLength-len(encoded)) + encoded
	}
	return strings.ToUpper(encoded[len(encoded)-orderIDLength:])
}

// Service prices carts and places orders.
type Service struct {
	pricing Pricing
	delay   time.Duration
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
	now     func() time.Time
	newID   func() string
}

// Option configures optional service behavior.
type Option func(*Service)

func WithLogger(logg *logger.Logger) Option {
	return func(s *Service) {
		s.logg = logg
	}
}

func WithMetrics(m *metrics.CheckoutMetrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock overrides the order timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithOrderIDs overrides order id generation.
func WithOrderIDs(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newID = next
		}
	}
}

// NewService builds a checkout service. A negative delay disables the
// simulated payment wait.
func NewService(pricing Pricing, processingDelay time.Duration, opts ...Option) *Service {
	s := &Service{
		pricing: pricing,
		delay:   processingDelay,
		now:     time.Now,
		newID:   NewOrderID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Pricing() Pricing {
	return s.pricing
}

// QuoteCart prices the current contents of store.
func (s *Service) QuoteCart(store CartStore) Quote {
	return s.pricing.Quote(store.View().TotalPrice)
}

// Submit validates the forms, simulates payment and, on success, removes the
// ordered lines from the cart and returns the placed order. Items added while
// payment runs are not part of the order and stay in the cart.
func (s *Service) Submit(ctx context.Context, store CartStore, req Request) (*Order, error) {
	valid, err := ValidateRequest(req)
	if err != nil {
		s.metrics.IncOrder(outcomeInvalid)
		return nil, err
	}

	view := store.View()
	if len(view.Items) == 0 {
		s.metrics.IncOrder(outcomeEmptyCart)
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty")
	}
	quote := s.pricing.Quote(view.TotalPrice)

	if err := s.wait(ctx); err != nil {
		s.metrics.IncOrder(outcomeCancelled)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment processing interrupted")
	}

	order := &Order{
		ID:        s.newID(),
		Items:     view.Items,
		Quote:     quote,
		Shipping:  valid.Shipping,
		CardLast4: LastFour(valid.Payment.CardNumber),
		PlacedAt:  s.now().UTC(),
	}

	if err := store.Deduct(ctx, view.Items); err != nil {
		s.metrics.IncOrder(outcomeFailed)
		return nil, err
	}

	s.metrics.IncOrder(outcomePlaced)
	s.metrics.ObserveOrderTotal(quote.Total.InexactFloat64())
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID,
			"items":    view.TotalItems,
			"total":    quote.Total.StringFixed(2),
		})
		s.logg.Info(logCtx, "order placed")
	}
	return order, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
