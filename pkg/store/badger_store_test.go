package store

import (
	"context"
	"testing"

	"github.com/availops/orbitd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openBadger(t *testing.T) *BadgerStore {
	t.Helper()
	s := NewBadgerStore(nil)
	require.NoError(t, s.Open(t.TempDir()))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := openBadger(t)

	rollup := testRollup("orbit-1")
	require.NoError(t, s.CreateRollup(ctx, rollup))
	assert.Error(t, s.CreateRollup(ctx, rollup))

	got, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	assert.Equal(t, rollup.Chain.NodeImage, got.Chain.NodeImage)

	got.State = types.RollupStateFailed
	got.Health = types.HealthStatus{Healthy: false, Reason: "step deploy-contracts failed"}
	require.NoError(t, s.UpdateRollup(ctx, got))

	updated, err := s.GetRollup(ctx, "orbit-1")
	require.NoError(t, err)
	assert.Equal(t, types.RollupStateFailed, updated.State)
	assert.Equal(t, "step deploy-contracts failed", updated.Health.Reason)

	require.NoError(t, s.CreateRollup(ctx, testRollup("orbit-2")))
	all, err := s.ListRollups(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.DeleteRollup(ctx, "orbit-2"))
	_, err = s.GetRollup(ctx, "orbit-2")
	assert.True(t, types.IsNotFound(err))
}

func TestBadgerStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := openBadger(t)

	_, err := s.GetRollup(ctx, "missing")
	assert.True(t, types.IsNotFound(err))
	assert.True(t, types.IsNotFound(s.UpdateRollup(ctx, testRollup("missing"))))
	assert.True(t, types.IsNotFound(s.DeleteRollup(ctx, "missing")))
}
