// Package store holds the insertion-ordered, deduplicated record set of one export run.
package store

import (
	"sync"

	"followexport/pkg/models"
)

// Store maps identity keys to records and remembers the order keys arrived in.
// It never enforces a size cap; callers stop adding when they reach their limit.
type Store struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*models.Record
	frozen  bool
}

// New creates an empty store
func New() *Store {
	return &Store{records: make(map[string]*models.Record)}
}

// TryAdd inserts factory() under key unless key is already present or the store
// is frozen. The factory is not called when nothing is inserted.
func (s *Store) TryAdd(key string, factory func() *models.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return false
	}
	if _, exists := s.records[key]; exists {
		return false
	}

	rec := factory()
	if rec == nil {
		return false
	}
	s.records[key] = rec
	s.order = append(s.order, key)
	return true
}

// Has reports whether key is known
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[key]
	return ok
}

// Size returns the number of records
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Values returns the records in insertion order. The slice is a copy; the
// records are shared.
func (s *Store) Values() []*models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Record, len(s.order))
	for i, key := range s.order {
		out[i] = s.records[key]
	}
	return out
}

// Freeze makes the store read-only
func (s *Store) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

// Frozen reports whether Freeze was called
func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

// Clear drops every record and unfreezes the store
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.records = make(map[string]*models.Record)
	s.frozen = false
}
