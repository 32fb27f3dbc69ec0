package repository

import (
	"context"
	"slices"
	"sync"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/entity"
)

// MemoryStore is an in-memory implementation of ResultStore.
type MemoryStore struct {
	mu   sync.RWMutex
	data []entity.FinalRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Append(_ context.Context, rec entity.FinalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append(m.data, rec)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]entity.FinalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.data), nil
}

func (m *MemoryStore) Latest(_ context.Context) (entity.FinalRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.data) == 0 {
		return entity.FinalRecord{}, common.ErrNotFound
	}
	return m.data[len(m.data)-1], nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

func (m *MemoryStore) Close() error { return nil }
