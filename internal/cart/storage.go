package cart

import (
	"context"
	"errors"
	"sync"
)

// ErrSnapshotNotFound is returned by Storage.Load when a session has never been saved.
var ErrSnapshotNotFound = errors.New("cart snapshot not found")

// Storage persists serialized cart snapshots keyed by cart session.
type Storage interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, payload []byte) error
}

// MemoryStorage keeps snapshots in process memory.
type MemoryStorage struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{snapshots: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.snapshots[sessionID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), payload...), nil
}

func (m *MemoryStorage) Save(_ context.Context, sessionID string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[sessionID] = append([]byte(nil), payload...)
	return nil
}
