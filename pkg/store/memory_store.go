package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/availops/orbitd/pkg/types"
)

// Validate that MemoryStore implements the Store interface
var _ Store = &MemoryStore{}

// MemoryStore is an in-memory implementation of the Store interface for
// tests and ephemeral runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Open initializes the memory store.
func (m *MemoryStore) Open(path string) error {
	return nil
}

// Close closes the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

// CreateRollup creates a new rollup record.
func (m *MemoryStore) CreateRollup(ctx context.Context, rollup *types.Rollup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[rollup.ID]; ok {
		return fmt.Errorf("rollup %s already exists", rollup.ID)
	}

	data, err := json.Marshal(rollup)
	if err != nil {
		return fmt.Errorf("failed to serialize rollup: %w", err)
	}
	m.data[rollup.ID] = data
	return nil
}

// GetRollup retrieves a rollup record by ID.
func (m *MemoryStore) GetRollup(ctx context.Context, id string) (*types.Rollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[id]
	if !ok {
		return nil, types.NewNotFoundError(id)
	}

	var rollup types.Rollup
	if err := json.Unmarshal(data, &rollup); err != nil {
		return nil, fmt.Errorf("failed to deserialize rollup: %w", err)
	}
	return &rollup, nil
}

// ListRollups retrieves all rollup records.
func (m *MemoryStore) ListRollups(ctx context.Context) ([]*types.Rollup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rollups := make([]*types.Rollup, 0, len(m.data))
	for _, data := range m.data {
		var rollup types.Rollup
		if err := json.Unmarshal(data, &rollup); err != nil {
			return nil, fmt.Errorf("failed to deserialize rollup: %w", err)
		}
		rollups = append(rollups, &rollup)
	}
	return rollups, nil
}

// UpdateRollup updates an existing rollup record.
func (m *MemoryStore) UpdateRollup(ctx context.Context, rollup *types.Rollup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[rollup.ID]; !ok {
		return types.NewNotFoundError(rollup.ID)
	}

	data, err := json.Marshal(rollup)
	if err != nil {
		return fmt.Errorf("failed to serialize rollup: %w", err)
	}
	m.data[rollup.ID] = data
	return nil
}

// DeleteRollup deletes a rollup record.
func (m *MemoryStore) DeleteRollup(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[id]; !ok {
		return types.NewNotFoundError(id)
	}
	delete(m.data, id)
	return nil
}
