package state

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// MemoryStore implements Store using in-memory storage
type MemoryStore struct {
	logger *zap.Logger
	mu     sync.RWMutex
	blobs  map[string]*Versioned
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory state store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		logger: logger.Named("state.store.memory"),
		blobs:  make(map[string]*Versioned),
	}
}

// Create implements Store.Create
func (s *MemoryStore) Create(_ context.Context, id string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.blobs[id]; exists {
		return ErrSessionExists
	}
	s.blobs[id] = &Versioned{Version: 0, Blob: append([]byte(nil), blob...)}
	return nil
}

// Read implements Store.Read
func (s *MemoryStore) Read(_ context.Context, id string) (*Versioned, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.blobs[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	// Copy so callers cannot mutate the stored blob.
	return &Versioned{Version: v.Version, Blob: append([]byte(nil), v.Blob...)}, nil
}

// CompareAndSwap implements Store.CompareAndSwap
func (s *MemoryStore) CompareAndSwap(_ context.Context, id string, expectedVersion int64, blob []byte) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.blobs[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	if v.Version != expectedVersion {
		return 0, ErrVersionConflict
	}

	next := expectedVersion + 1
	s.blobs[id] = &Versioned{Version: next, Blob: append([]byte(nil), blob...)}
	return next, nil
}

// Delete implements Store.Delete
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, id)
	return nil
}

// Close implements Store.Close
func (s *MemoryStore) Close() error {
	return nil
}
