package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.HTTPAddr)
	assert.Empty(t, cfg.Rollups)
}

func TestLoadRejectsMalformedDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orbitfile.yaml"),
		[]byte("rollups: [\n  id: broken\n"), 0o644))
	chdir(t, dir)

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "orbitfile.yaml")
}

func TestLoadRejectsMissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadParsesDeclaredRollups(t *testing.T) {
	dir := t.TempDir()
	orbitfile := filepath.Join(dir, "orbitfile.yaml")
	require.NoError(t, os.WriteFile(orbitfile, []byte(`
server:
  http_address: ":9090"
rollups:
  - id: orbit-1
    parent_chain_rpc: https://sepolia.example
    avail_app_id: "7"
`), 0o644))

	cfg, err := Load(orbitfile)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddr)
	require.Len(t, cfg.Rollups, 1)
	assert.Equal(t, "orbit-1", cfg.Rollups[0].ID)

	rollup := cfg.Rollups[0].ToRollup(dir)
	assert.Equal(t, DefaultChainID, rollup.Chain.ChainID)
	assert.Equal(t, DefaultNodeImage, rollup.Chain.NodeImage)
	assert.Equal(t, filepath.Join(dir, "rollups", "orbit-1"), rollup.Chain.WorkDir)
}
