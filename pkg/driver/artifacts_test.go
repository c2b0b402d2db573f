package driver

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d"

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	env := map[string]string{
		"DEPLOYER_PRIVATE_KEY":     testKey,
		"BATCH_POSTER_PRIVATE_KEY": testKey,
		"VALIDATOR_PRIVATE_KEY":    testKey,
		"AVAIL_ADDR_SEED":          "seed phrase goes here for avail account entropy",
	}
	v, err := vault.Load(func(key string) string { return env[key] })
	require.NoError(t, err)
	return v
}

func artifactRollup(t *testing.T) *types.Rollup {
	t.Helper()
	return &types.Rollup{
		ID:    "orbit-1",
		State: types.RollupStateUninitialized,
		Chain: types.ChainConfig{
			ChainID:        20121999,
			ChainName:      "avail-orbit",
			ParentChainRPC: "https://sepolia-rollup.arbitrum.io/rpc",
			AvailAppID:     "1",
			NodeImage:      "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1",
			WorkDir:        t.TempDir(),
		},
		Metadata: types.Metadata{Name: "Avail Orbit", ExplorerURL: "https://explorer.example"},
	}
}

func TestRenderArtifactsWritesNodeConfig(t *testing.T) {
	rollup := artifactRollup(t)
	require.NoError(t, renderArtifacts(rollup, testVault(t)))

	data, err := os.ReadFile(filepath.Join(rollup.Chain.WorkDir, nodeConfigFile))
	require.NoError(t, err)

	var cfg nodeConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, uint64(20121999), cfg.ChainID)
	assert.Equal(t, "https://explorer.example", cfg.ExplorerURL)

	// The public config must never carry credential material
	assert.NotContains(t, string(data), testKey)
}

func TestRenderArtifactsWritesEnvFile(t *testing.T) {
	rollup := artifactRollup(t)
	require.NoError(t, renderArtifacts(rollup, testVault(t)))

	path := filepath.Join(rollup.Chain.WorkDir, nodeEnvFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	content := string(data)
	assert.Contains(t, content, "DEPLOYER_PRIVATE_KEY="+testKey)
	assert.Contains(t, content, "BATCH_POSTER_PRIVATE_KEY=")
	assert.Contains(t, content, "VALIDATOR_PRIVATE_KEY=")
	assert.Contains(t, content, "AVAIL_ADDR_SEED=")
	assert.Contains(t, content, "PARENT_CHAIN_RPC=https://sepolia-rollup.arbitrum.io/rpc")
	assert.Contains(t, content, "CHAIN_ID=20121999")

	// Optional S3 roles are absent when not configured
	assert.NotContains(t, content, "FALLBACKS3_ACCESS_KEY")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRenderArtifactsRequiresWorkDir(t *testing.T) {
	rollup := artifactRollup(t)
	rollup.Chain.WorkDir = ""
	err := renderArtifacts(rollup, testVault(t))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "work directory"))
}

func TestStepMarkers(t *testing.T) {
	workDir := t.TempDir()
	fp := chainFingerprint(artifactRollup(t))

	assert.False(t, markerMatches(workDir, "deploy-chain", fp))
	require.NoError(t, writeMarker(workDir, "deploy-chain", fp))
	assert.True(t, markerMatches(workDir, "deploy-chain", fp))

	// Markers are per step
	assert.False(t, markerMatches(workDir, "start-node", fp))

	require.NoError(t, clearMarkers(workDir))
	assert.False(t, markerMatches(workDir, "deploy-chain", fp))
}

func TestStepMarkersInvalidatedByChainConfigChange(t *testing.T) {
	workDir := t.TempDir()

	rollup := artifactRollup(t)
	require.NoError(t, writeMarker(workDir, "deploy-chain", chainFingerprint(rollup)))

	changed := artifactRollup(t)
	changed.Chain.ParentChainRPC = "https://other-parent.example/rpc"
	assert.False(t, markerMatches(workDir, "deploy-chain", chainFingerprint(changed)))

	// Metadata does not participate in the chain fingerprint
	renamed := artifactRollup(t)
	renamed.Metadata.Name = "renamed"
	assert.True(t, markerMatches(workDir, "deploy-chain", chainFingerprint(renamed)))
}
