package store

import (
	"context"
	"testing"

	"github.com/availops/orbitd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRollup(id string) *types.Rollup {
	return &types.Rollup{
		ID:    id,
		State: types.RollupStateUninitialized,
		Chain: types.ChainConfig{
			ChainID:        20121999,
			ParentChainRPC: "https://sepolia-rollup.arbitrum.io/rpc",
			AvailAppID:     "1",
			NodeImage:      "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1",
		},
	}
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Open(""))
	defer s.Close()

	rollup := testRollup("orbit-1")
	require.NoError(t, s.CreateRollup(ctx, rollup))

	// Duplicate create is rejected
	assert.Error(t, s.CreateRollup(ctx, rollup))

	got, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	assert.Equal(t, rollup.ID, got.ID)
	assert.Equal(t, rollup.Chain.ChainID, got.Chain.ChainID)

	got.State = types.RollupStateRunning
	require.NoError(t, s.UpdateRollup(ctx, got))

	updated, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	assert.Equal(t, types.RollupStateRunning, updated.State)

	all, err := s.ListRollups(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.DeleteRollup(ctx, "orbit-1"))
	_, err = s.GetRollup(ctx, "orbit-1")
	assert.True(t, types.IsNotFound(err))
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetRollup(ctx, "missing")
	assert.True(t, types.IsNotFound(err))

	assert.True(t, types.IsNotFound(s.UpdateRollup(ctx, testRollup("missing"))))
	assert.True(t, types.IsNotFound(s.DeleteRollup(ctx, "missing")))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateRollup(ctx, testRollup("orbit-1")))

	a, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	a.Metadata.Name = "mutated"

	b, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	assert.Empty(t, b.Metadata.Name, "mutating a returned record must not affect the store")
}
