package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

const (
	nodeConfigFile = "nodeConfig.json"
	nodeEnvFile    = "node.env"
	markerDir      = ".steps"
)

// nodeConfig is the public configuration rendered for the node container.
// Secrets never appear here; they travel only through the env file.
type nodeConfig struct {
	ChainID          uint64 `json:"chainId"`
	ChainName        string `json:"chainName,omitempty"`
	ParentChainRPC   string `json:"parentChainRpc"`
	AvailAppID       string `json:"availAppId"`
	AvailRPC         string `json:"availRpc,omitempty"`
	LocalRPCEndpoint string `json:"localRpcEndpoint,omitempty"`
	ExplorerURL      string `json:"explorerUrl,omitempty"`
	FallbackS3Enable bool   `json:"fallbackS3Enable"`
	BridgeAddress    string `json:"bridgeAddress,omitempty"`
	BridgeEnabled    bool   `json:"bridgeEnabled"`
}

// renderArtifacts writes the node config and credential env file into the
// rollup work directory. Called on deploy and on every config-changing
// update so the on-disk artifacts always reflect the current record.
func renderArtifacts(rollup *types.Rollup, creds *vault.Vault) error {
	workDir := rollup.Chain.WorkDir
	if workDir == "" {
		return fmt.Errorf("no work directory configured for rollup %s", rollup.ID)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	cfg := nodeConfig{
		ChainID:          rollup.Chain.ChainID,
		ChainName:        rollup.Chain.ChainName,
		ParentChainRPC:   rollup.Chain.ParentChainRPC,
		AvailAppID:       rollup.Chain.AvailAppID,
		AvailRPC:         rollup.Chain.AvailRPC,
		LocalRPCEndpoint: rollup.Metadata.LocalRPCEndpoint,
		ExplorerURL:      rollup.Metadata.ExplorerURL,
		FallbackS3Enable: rollup.Metadata.FallbackS3Enable,
		BridgeAddress:    rollup.Bridge.Address,
		BridgeEnabled:    rollup.Bridge.Enabled,
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal node config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, nodeConfigFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write node config: %w", err)
	}

	if creds != nil {
		if err := renderEnvFile(rollup, creds); err != nil {
			return err
		}
	}

	return nil
}

// envRoles maps node env variables to the credential roles that fill them.
var envRoles = []struct {
	key      string
	role     vault.Role
	required bool
}{
	{"DEPLOYER_PRIVATE_KEY", vault.RoleDeployer, true},
	{"BATCH_POSTER_PRIVATE_KEY", vault.RoleBatchPoster, true},
	{"VALIDATOR_PRIVATE_KEY", vault.RoleValidator, true},
	{"AVAIL_ADDR_SEED", vault.RoleAvailSeed, true},
	{"FALLBACKS3_ACCESS_KEY", vault.RoleS3AccessKey, false},
	{"FALLBACKS3_SECRET_KEY", vault.RoleS3SecretKey, false},
}

func renderEnvFile(rollup *types.Rollup, creds *vault.Vault) error {
	var buf []byte
	for _, er := range envRoles {
		cap, err := creds.Get(er.role)
		if err != nil {
			if !er.required {
				continue
			}
			return err
		}
		buf = append(buf, cap.EnvLine(er.key)...)
	}
	buf = append(buf, fmt.Sprintf("PARENT_CHAIN_RPC=%s\n", rollup.Chain.ParentChainRPC)...)
	buf = append(buf, fmt.Sprintf("AVAIL_APP_ID=%s\n", rollup.Chain.AvailAppID)...)
	buf = append(buf, fmt.Sprintf("CHAIN_ID=%d\n", rollup.Chain.ChainID)...)

	path := filepath.Join(rollup.Chain.WorkDir, nodeEnvFile)
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return fmt.Errorf("failed to write env file: %w", err)
	}
	return nil
}

// Step markers make deploy retries idempotent. A completed step leaves a
// marker file holding the chain config fingerprint it was produced under;
// a retry skips chain-side work whose marker matches the current record
// and redoes everything else. Markers from a different chain config are
// cleared rather than reused.

func markerPath(workDir, stepName string) string {
	return filepath.Join(workDir, markerDir, stepName+".done")
}

// chainFingerprint identifies the chain-side deployment inputs. Two
// records with the same fingerprint produce the same chain deployment.
func chainFingerprint(rollup *types.Rollup) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\n%s\n%s\n%s",
		rollup.Chain.ChainID,
		rollup.Chain.ParentChainRPC,
		rollup.Chain.AvailAppID,
		rollup.Chain.AvailRPC)))
	return hex.EncodeToString(sum[:])
}

func markerMatches(workDir, stepName, fingerprint string) bool {
	data, err := os.ReadFile(markerPath(workDir, stepName))
	return err == nil && string(data) == fingerprint
}

func writeMarker(workDir, stepName, fingerprint string) error {
	path := markerPath(workDir, stepName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fingerprint), 0o644); err != nil {
		return fmt.Errorf("failed to write step marker: %w", err)
	}
	return nil
}

func clearMarkers(workDir string) error {
	return os.RemoveAll(filepath.Join(workDir, markerDir))
}
