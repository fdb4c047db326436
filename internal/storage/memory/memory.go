// Package memory provides an in-process ledger store for development and tests.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/storage"
)

// Store keeps the last saved snapshot in memory. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	snap  storage.Snapshot
	saves int

	// FailSave, when set, is returned from Save without storing anything.
	FailSave error
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// NewWithSnapshot seeds the store, as if s had been saved earlier.
func NewWithSnapshot(s storage.Snapshot) *Store {
	return &Store{snap: s.Clone()}
}

func (m *Store) Load(_ context.Context) (storage.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap.Clone(), nil
}

func (m *Store) Save(_ context.Context, s storage.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.snap = s.Clone()
	m.saves++
	return nil
}

// Saves returns how many successful saves have happened.
func (m *Store) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
