package feedback

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const defaultRegistrySize = 10000

// Registry holds one Controller per cart session. Controllers evicted from
// the registry are closed.
type Registry struct {
	mu     sync.Mutex
	cache  *lru.Cache
	timing Timing
	opts   []Option
}

// NewRegistry holds up to size controllers built with timing and opts.
func NewRegistry(size int, timing Timing, opts ...Option) (*Registry, error) {
	if size <= 0 {
		size = defaultRegistrySize
	}
	cache, err := lru.NewWithEvict(size, func(_ interface{}, value interface{}) {
		if ctrl, ok := value.(*Controller); ok {
			ctrl.Close()
		}
	})
	if err != nil {
		return nil, err
	}
	return &Registry{cache: cache, timing: timing, opts: opts}, nil
}

// Get returns the controller for sessionID, creating it on first use.
func (r *Registry) Get(sessionID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache.Get(sessionID); ok {
		return existing.(*Controller)
	}
	ctrl := NewController(r.timing, r.opts...)
	r.cache.Add(sessionID, ctrl)
	return ctrl
}

// Lookup returns the controller for sessionID without creating one.
func (r *Registry) Lookup(sessionID string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	value, ok := r.cache.Get(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*Controller), true
}

// Close closes every controller and empties the registry.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Purge()
}
