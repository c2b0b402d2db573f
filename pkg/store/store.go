// Package store provides persistence for rollup records.
package store

import (
	"context"

	"github.com/availops/orbitd/pkg/types"
)

// Store defines the persistence interface for rollup records. The
// registry writes through it under the lifecycle lock; credentials are
// never stored here.
type Store interface {
	// Open initializes and opens the store.
	Open(path string) error

	// Close closes the store and releases resources.
	Close() error

	// CreateRollup creates a new rollup record.
	CreateRollup(ctx context.Context, rollup *types.Rollup) error

	// GetRollup retrieves a rollup record by ID.
	GetRollup(ctx context.Context, id string) (*types.Rollup, error)

	// ListRollups retrieves all rollup records.
	ListRollups(ctx context.Context) ([]*types.Rollup, error)

	// UpdateRollup updates an existing rollup record.
	UpdateRollup(ctx context.Context, rollup *types.Rollup) error

	// DeleteRollup deletes a rollup record.
	DeleteRollup(ctx context.Context, id string) error
}
