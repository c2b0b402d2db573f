package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/registry"
	"github.com/availops/orbitd/pkg/store"
	"github.com/availops/orbitd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRollup(id string, state types.RollupState) *types.Rollup {
	return &types.Rollup{
		ID:    id,
		State: state,
		Chain: types.ChainConfig{
			ChainID:        20121999,
			ParentChainRPC: "https://sepolia-rollup.arbitrum.io/rpc",
			AvailAppID:     "1",
			NodeImage:      "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1",
		},
	}
}

func TestProbeAllWritesHealth(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry(store.NewMemoryStore(), nil)
	require.NoError(t, reg.Create(ctx, testRollup("orbit-1", types.RollupStateRunning)))

	drv := driver.NewFakeDriver()
	drv.StatusResult = types.HealthStatus{Healthy: true, CheckedAt: time.Now()}

	m := NewMonitor(reg, drv, nil, Options{})
	m.ProbeAll(ctx)

	health, err := reg.Health("orbit-1")
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestProbeAllSkipsNodelessStates(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry(store.NewMemoryStore(), nil)
	require.NoError(t, reg.Create(ctx, testRollup("orbit-1", types.RollupStateUninitialized)))

	deploying := testRollup("orbit-2", types.RollupStateRunning)
	require.NoError(t, reg.Create(ctx, deploying))

	drv := driver.NewFakeDriver()
	drv.StatusResult = types.HealthStatus{Healthy: true, CheckedAt: time.Now()}

	m := NewMonitor(reg, drv, nil, Options{})
	m.ProbeAll(ctx)

	// The uninitialized rollup has no node to probe
	health, err := reg.Health("orbit-1")
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.True(t, health.CheckedAt.IsZero())

	health, err = reg.Health("orbit-2")
	require.NoError(t, err)
	assert.True(t, health.Healthy)
}

func TestProbeFailureMarksUnhealthy(t *testing.T) {
	ctx := context.Background()
	reg := registry.NewRegistry(store.NewMemoryStore(), nil)
	require.NoError(t, reg.Create(ctx, testRollup("orbit-1", types.RollupStateRunning)))

	drv := driver.NewFakeDriver()
	drv.StatusErr = errors.New("docker unreachable")

	m := NewMonitor(reg, drv, nil, Options{})
	m.ProbeAll(ctx)

	health, err := reg.Health("orbit-1")
	require.NoError(t, err)
	assert.False(t, health.Healthy)
	assert.Contains(t, health.Reason, "probe failed")
}

func TestStartStop(t *testing.T) {
	reg := registry.NewRegistry(store.NewMemoryStore(), nil)
	drv := driver.NewFakeDriver()

	m := NewMonitor(reg, drv, nil, Options{Interval: time.Second})
	require.NoError(t, m.Start())
	m.Stop()
}
