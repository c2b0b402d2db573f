package dispatcher

import (
	"testing"

	"github.com/availops/orbitd/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateArgsSchemas(t *testing.T) {
	cases := []struct {
		name string
		op   types.Operation
		args map[string]string
		ok   bool
	}{
		{"restart takes no args", types.OperationRestart, nil, true},
		{"restart rejects args", types.OperationRestart, map[string]string{"name": "x"}, false},
		{"metadata accepts known keys", types.OperationUpdateMetadata, map[string]string{"name": "x", "fallbackS3Enable": "true"}, true},
		{"metadata rejects unknown key", types.OperationUpdateMetadata, map[string]string{"chainId": "5"}, false},
		{"metadata rejects bad bool", types.OperationUpdateMetadata, map[string]string{"fallbackS3Enable": "maybe"}, false},
		{"bridge accepts known keys", types.OperationUpdateBridge, map[string]string{"address": "0x000000000000000000000000000000000000dEaD", "parentChainId": "421614", "enabled": "true"}, true},
		{"bridge rejects bad chain id", types.OperationUpdateBridge, map[string]string{"parentChainId": "not-a-number"}, false},
		{"unknown operation", types.Operation("explode"), nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateArgs(tc.op, tc.args)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.True(t, types.IsValidationError(err))
			}
		})
	}
}

func TestValidateArgsDenylistBeforeSchema(t *testing.T) {
	// A credential-shaped key is refused with the denylist reason even
	// when the key would also fail the schema check
	err := validateArgs(types.OperationRestart, map[string]string{"apiKey": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credential-shaped")
}

func TestApplyArgs(t *testing.T) {
	rollup := testRollup("orbit-1", types.RollupStateRunning)

	applyArgs(rollup, types.OperationUpdateMetadata, map[string]string{
		"name":             "Avail Orbit",
		"description":      "test rollup",
		"fallbackS3Enable": "true",
	})
	assert.Equal(t, "Avail Orbit", rollup.Metadata.Name)
	assert.Equal(t, "test rollup", rollup.Metadata.Description)
	assert.True(t, rollup.Metadata.FallbackS3Enable)

	applyArgs(rollup, types.OperationUpdateBridge, map[string]string{
		"address":       "0x000000000000000000000000000000000000dEaD",
		"parentChainId": "421614",
		"enabled":       "true",
	})
	assert.Equal(t, "0x000000000000000000000000000000000000dEaD", rollup.Bridge.Address)
	assert.Equal(t, uint64(421614), rollup.Bridge.ParentChainID)
	assert.True(t, rollup.Bridge.Enabled)

	// Restart never touches the record
	before := *rollup
	applyArgs(rollup, types.OperationRestart, map[string]string{"anything": "x"})
	assert.Equal(t, before, *rollup)
}
