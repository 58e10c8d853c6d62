package store

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-process Store used by tests and dry runs. It applies
// the same merge-on-write semantics as the Firestore implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]map[string]any
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (map[string]any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, false, nil
	}
	return maps.Clone(doc), true, nil
}

// SetMerge implements Store.
func (s *MemoryStore) SetMerge(_ context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		doc = make(map[string]any, len(fields))
		s.docs[id] = doc
	}
	maps.Copy(doc, fields)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
