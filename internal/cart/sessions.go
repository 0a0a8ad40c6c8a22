package cart

import (
	"context"
	"strings"
	"sync"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	lru "github.com/hashicorp/golang-lru"
)

const defaultMaxSessions = 10000

// Sessions maps cart session ids to their stores. The least recently used
// stores are dropped from memory once maxSessions is reached; their carts stay
// in storage and are rehydrated on the next Open. A dropped store that is still
// referenced forwards its reads and writes to the store Open returns.
type Sessions struct {
	mu      sync.Mutex
	storage Storage
	cache   *lru.Cache
	opts    []Option
	metrics *metrics.CartMetrics
}

// NewSessions builds a registry. opts are applied to every store it opens.
func NewSessions(storage Storage, maxSessions int, m *metrics.CartMetrics, opts ...Option) (*Sessions, error) {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	cache, err := lru.NewWithEvict(maxSessions, func(_ interface{}, value interface{}) {
		if store, ok := value.(*Store); ok {
			store.stale.Store(true)
		}
	})
	if err != nil {
		return nil, err
	}
	return &Sessions{
		storage: storage,
		cache:   cache,
		opts:    append(opts, WithMetrics(m)),
		metrics: m,
	}, nil
}

// Open returns the store for sessionID, loading it from storage on first use.
func (s *Sessions) Open(ctx context.Context, sessionID string) (*Store, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache.Get(id); ok {
		return cached.(*Store), nil
	}

	store, err := Open(ctx, id, s.storage, s.opts...)
	if err != nil {
		return nil, err
	}
	store.reopen = s.Open
	s.cache.Add(id, store)
	s.metrics.SetOpenSessions(s.cache.Len())
	return store, nil
}

// Len reports how many stores are held in memory.
func (s *Sessions) Len() int {
	return s.cache.Len()
}

// Purge drops every in-memory store.
func (s *Sessions) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	s.metrics.SetOpenSessions(0)
}
