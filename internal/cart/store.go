package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

const (
	opAdd    = "add"
	opUpdate = "update_quantity"
	opRemove = "remove"
	opClear  = "clear"
	opDeduct = "deduct"

	// MaxLineQuantity caps the quantity of a single cart line.
	MaxLineQuantity = 999
)

// Store owns the cart of one cart session. Mutations are serialised, applied
// in call order and persisted before they become visible.
type Store struct {
	mu        sync.Mutex
	sessionID string
	items     []Item
	storage   Storage
	logg      *logger.Logger
	metrics   *metrics.CartMetrics

	// stale is set once a Sessions registry has dropped this store; reopen
	// then resolves the store that currently owns the session.
	stale  atomic.Bool
	reopen func(ctx context.Context, sessionID string) (*Store, error)
}

// Option configures optional store behavior.
type Option func(*Store)

// WithLogger reports snapshot recoveries.
func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		s.logg = logg
	}
}

// WithMetrics records mutation outcomes and recoveries.
func WithMetrics(m *metrics.CartMetrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// New returns an empty store for sessionID. Use Open to rehydrate a saved cart.
func New(sessionID string, storage Storage, opts ...Option) *Store {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	s := &Store{sessionID: sessionID, storage: storage, items: []Item{}}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Open builds a store and loads its saved snapshot.
func Open(ctx context.Context, sessionID string, storage Storage, opts ...Option) (*Store, error) {
	s := New(sessionID, storage, opts...)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SessionID identifies the cart session owning this store.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Reload replaces the in-memory cart with the saved snapshot. A missing
// snapshot yields an empty cart, and so does a corrupt one.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) error {
	payload, err := s.storage.Load(ctx, s.sessionID)
	if errors.Is(err, ErrSnapshotNotFound) {
		s.items = []Item{}
		return nil
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart snapshot")
	}

	items, dropped, err := decodeSnapshot(payload)
	if err != nil {
		s.metrics.IncRecovery()
		s.warn(ctx, fmt.Sprintf("resetting cart: %v", err))
		s.items = []Item{}
		return nil
	}
	if dropped > 0 {
		s.warn(ctx, fmt.Sprintf("dropped or merged %d invalid snapshot lines", dropped))
	}
	s.items = items
	return nil
}

// AddItem adds quantity units of product. An existing line for the same
// product id has its quantity increased; otherwise a new line is appended.
func (s *Store) AddItem(ctx context.Context, product ProductRef, quantity int) error {
	if product.ID <= 0 {
		return s.reject(opAdd, "product id must be positive")
	}
	if product.Price.IsNegative() {
		return s.reject(opAdd, "product price must not be negative")
	}
	if quantity < 1 {
		return s.reject(opAdd, "quantity must be at least 1")
	}
	if quantity > MaxLineQuantity {
		return s.reject(opAdd, fmt.Sprintf("quantity must be at most %d", MaxLineQuantity))
	}

	return s.mutate(ctx, opAdd, func(items []Item) ([]Item, error) {
		if idx := indexOf(items, product.ID); idx >= 0 {
			if items[idx].Quantity > MaxLineQuantity-quantity {
				return nil, fmt.Errorf("line quantity must be at most %d", MaxLineQuantity)
			}
			items[idx].Quantity += quantity
			return items, nil
		}
		return append(items, Item{
			ProductID: product.ID,
			Title:     product.Title,
			Price:     product.Price,
			Image:     product.Image,
			Quantity:  quantity,
		}), nil
	})
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line; an unknown product id leaves the cart unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, productID, quantity int) error {
	if quantity > MaxLineQuantity {
		return s.reject(opUpdate, fmt.Sprintf("quantity must be at most %d", MaxLineQuantity))
	}
	if quantity <= 0 {
		return s.mutate(ctx, opUpdate, func(items []Item) ([]Item, error) {
			return without(items, productID), nil
		})
	}
	return s.mutate(ctx, opUpdate, func(items []Item) ([]Item, error) {
		if idx := indexOf(items, productID); idx >= 0 {
			items[idx].Quantity = quantity
		}
		return items, nil
	})
}

// RemoveItem deletes the line for productID if present.
func (s *Store) RemoveItem(ctx context.Context, productID int) error {
	return s.mutate(ctx, opRemove, func(items []Item) ([]Item, error) {
		return without(items, productID), nil
	})
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	return s.mutate(ctx, opClear, func([]Item) ([]Item, error) {
		return []Item{}, nil
	})
}

// Deduct subtracts the quantities of lines from the cart, removing lines that
// reach zero. Units added after lines were read stay in the cart.
func (s *Store) Deduct(ctx context.Context, lines []Item) error {
	return s.mutate(ctx, opDeduct, func(items []Item) ([]Item, error) {
		for _, line := range lines {
			idx := indexOf(items, line.ProductID)
			if idx < 0 {
				continue
			}
			if items[idx].Quantity <= line.Quantity {
				items = without(items, line.ProductID)
				continue
			}
			items[idx].Quantity -= line.Quantity
		}
		return items, nil
	})
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []Item {
	if live := s.live(); live != s {
		return live.Items()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneItems(s.items)
}

// Item returns the line for productID.
func (s *Store) Item(productID int) (Item, bool) {
	if live := s.live(); live != s {
		return live.Item(productID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := indexOf(s.items, productID); idx >= 0 {
		return s.items[idx], true
	}
	return Item{}, false
}

// TotalItems is the sum of line quantities.
func (s *Store) TotalItems() int {
	return s.View().TotalItems
}

// TotalPrice is the exact sum of line subtotals.
func (s *Store) TotalPrice() decimal.Decimal {
	return s.View().TotalPrice
}

// View is a consistent read of the cart and its derived totals.
type View struct {
	Items      []Item
	TotalItems int
	TotalPrice decimal.Decimal
}

// View reads the lines and their totals under one lock.
func (s *Store) View() View {
	if live := s.live(); live != s {
		return live.View()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return View{
		Items:      cloneItems(s.items),
		TotalItems: TotalItems(s.items),
		TotalPrice: TotalPrice(s.items),
	}
}

// current returns the store that owns the session now. A store dropped by its
// registry forwards to the one the registry holds, so a session never has two
// stores writing snapshots.
func (s *Store) current(ctx context.Context) (*Store, error) {
	if s.reopen == nil || !s.stale.Load() {
		return s, nil
	}
	return s.reopen(ctx, s.sessionID)
}

func (s *Store) live() *Store {
	current, err := s.current(context.Background())
	if err != nil || current == nil {
		return s
	}
	return current
}

func (s *Store) mutate(ctx context.Context, op string, apply func([]Item) ([]Item, error)) error {
	target, err := s.current(ctx)
	if err != nil {
		s.metrics.ObserveMutation(op, metrics.OutcomeFailed)
		return err
	}
	if target != s {
		return target.mutate(ctx, op, apply)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := apply(cloneItems(s.items))
	if err != nil {
		return s.reject(op, err.Error())
	}
	payload, err := encodeSnapshot(next)
	if err != nil {
		s.metrics.ObserveMutation(op, metrics.OutcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart snapshot")
	}
	if err := s.storage.Save(ctx, s.sessionID, payload); err != nil {
		s.metrics.ObserveMutation(op, metrics.OutcomeFailed)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cart")
	}

	s.items = next
	s.metrics.ObserveMutation(op, metrics.OutcomeApplied)
	return nil
}

func (s *Store) reject(op, message string) error {
	s.metrics.ObserveMutation(op, metrics.OutcomeRejected)
	return pkgerrors.Wrap(pkgerrors.CodeValidation, ErrValidationRejected, message)
}

func (s *Store) warn(ctx context.Context, msg string) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithCartSession(ctx, s.sessionID), msg)
}

func without(items []Item, productID int) []Item {
	idx := indexOf(items, productID)
	if idx < 0 {
		return items
	}
	return append(items[:idx], items[idx+1:]...)
}
