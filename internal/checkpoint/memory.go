package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory CursorStore for tests and wasm builds,
// where no filesystem is available
type MemoryStore struct {
	mu      sync.RWMutex
	cursors map[string]*Cursor
}

// NewMemoryStore creates a new in-memory cursor store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cursors: make(map[string]*Cursor),
	}
}

// Open initializes the store
func (s *MemoryStore) Open() error {
	return nil
}

// Close closes the store
func (s *MemoryStore) Close() error {
	return nil
}

// Put stores or replaces a cursor by name
func (s *MemoryStore) Put(ctx context.Context, cursor *Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *cursor
	s.cursors[cursor.Name] = &copied
	return nil
}

// Get retrieves a cursor by name
func (s *MemoryStore) Get(ctx context.Context, name string) (*Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursor, ok := s.cursors[name]
	if !ok {
		return nil, ErrCursorNotFound{Name: name}
	}
	copied := *cursor
	return &copied, nil
}

// List retrieves all cursors
func (s *MemoryStore) List(ctx context.Context) ([]*Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cursors := make([]*Cursor, 0, len(s.cursors))
	for _, cursor := range s.cursors {
		copied := *cursor
		cursors = append(cursors, &copied)
	}
	return cursors, nil
}

// Delete removes a cursor by name
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cursors[name]; !ok {
		return ErrCursorNotFound{Name: name}
	}
	delete(s.cursors, name)
	return nil
}
