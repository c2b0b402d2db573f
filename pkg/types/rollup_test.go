package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRollup() *Rollup {
	return &Rollup{
		ID:    "orbit-1",
		State: RollupStateUninitialized,
		Chain: ChainConfig{
			ChainID:        20121999,
			ChainName:      "Avail-Orbit-Testnet",
			ParentChainRPC: "https://sepolia-rollup.arbitrum.io/rpc",
			AvailAppID:     "1",
			NodeImage:      "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1",
			RPCPort:        8449,
		},
	}
}

func TestRollupValidate(t *testing.T) {
	require.NoError(t, validRollup().Validate())

	r := validRollup()
	r.ID = ""
	assert.Error(t, r.Validate())

	r = validRollup()
	r.Chain.ChainID = 0
	assert.Error(t, r.Validate())

	r = validRollup()
	r.Chain.ParentChainRPC = ""
	assert.Error(t, r.Validate())

	r = validRollup()
	r.Chain.AvailAppID = ""
	assert.Error(t, r.Validate())

	r = validRollup()
	r.Chain.NodeImage = ""
	assert.Error(t, r.Validate())
}

func TestOperationForJobID(t *testing.T) {
	op, ok := OperationForJobID(JobIDUpdateMetadata)
	require.True(t, ok)
	assert.Equal(t, OperationUpdateMetadata, op)

	op, ok = OperationForJobID(JobIDRestart)
	require.True(t, ok)
	assert.Equal(t, OperationRestart, op)

	op, ok = OperationForJobID(JobIDUpdateBridge)
	require.True(t, ok)
	assert.Equal(t, OperationUpdateBridge, op)

	_, ok = OperationForJobID(99)
	assert.False(t, ok)
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "orbit-node-orbit-1", validRollup().ContainerName())
}
