package types

import (
	"time"
)

// RollupState represents the lifecycle state of a managed rollup.
type RollupState string

const (
	// RollupStateUninitialized indicates the rollup has never been deployed.
	RollupStateUninitialized RollupState = "Uninitialized"

	// RollupStateDeploying indicates a deployment is in progress.
	RollupStateDeploying RollupState = "Deploying"

	// RollupStateRunning indicates the rollup node is up.
	RollupStateRunning RollupState = "Running"

	// RollupStateRestarting indicates a restart is in progress.
	RollupStateRestarting RollupState = "Restarting"

	// RollupStateUpdating indicates a metadata or bridge update is in progress.
	RollupStateUpdating RollupState = "Updating"

	// RollupStateFailed indicates the last lifecycle operation failed.
	// Failed is recoverable: Deploy and Restart are admitted from it.
	RollupStateFailed RollupState = "Failed"
)

// ChainConfig is the public chain configuration for a rollup.
// It contains no secrets; signing material lives only in the vault.
type ChainConfig struct {
	// Chain ID of the rollup
	ChainID uint64 `json:"chainId" yaml:"chainId"`

	// Human-readable chain name
	ChainName string `json:"chainName" yaml:"chainName"`

	// Parent chain RPC endpoint (public endpoint)
	ParentChainRPC string `json:"parentChainRpc" yaml:"parentChainRpc"`

	// Avail application ID used for data availability
	AvailAppID string `json:"availAppId" yaml:"availAppId"`

	// Avail network RPC endpoint
	AvailRPC string `json:"availRpc" yaml:"availRpc"`

	// Node container image
	NodeImage string `json:"nodeImage" yaml:"nodeImage"`

	// Host port for the rollup RPC endpoint
	RPCPort int `json:"rpcPort" yaml:"rpcPort"`

	// Host port for the node metrics endpoint
	MetricsPort int `json:"metricsPort" yaml:"metricsPort"`

	// Working directory for rendered node artifacts
	WorkDir string `json:"workDir" yaml:"workDir"`
}

// Metadata is the mutable public metadata of a rollup. It is the only
// part of the record a metadata-update job may alter.
type Metadata struct {
	// Display name
	Name string `json:"name" yaml:"name"`

	// Free-form description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Explorer URL
	ExplorerURL string `json:"explorerUrl,omitempty" yaml:"explorerUrl,omitempty"`

	// Local RPC endpoint advertised to clients
	LocalRPCEndpoint string `json:"localRpcEndpoint,omitempty" yaml:"localRpcEndpoint,omitempty"`

	// Whether the S3 fallback for DA blobs is enabled
	FallbackS3Enable bool `json:"fallbackS3Enable" yaml:"fallbackS3Enable"`
}

// BridgeConfig is the public token bridge configuration.
type BridgeConfig struct {
	// Bridge contract address on the parent chain
	Address string `json:"address,omitempty" yaml:"address,omitempty"`

	// Parent chain ID the bridge is anchored to
	ParentChainID uint64 `json:"parentChainId,omitempty" yaml:"parentChainId,omitempty"`

	// Whether the bridge is active
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// HealthStatus is the last observed health snapshot of a rollup node.
// Updates are best effort and ordered by CheckedAt.
type HealthStatus struct {
	Healthy   bool      `json:"healthy" yaml:"healthy"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	CheckedAt time.Time `json:"checkedAt" yaml:"checkedAt"`
}

// Rollup represents one managed rollup deployment.
type Rollup struct {
	// Unique identifier, chosen at creation and immutable
	ID string `json:"id" yaml:"id"`

	// Current lifecycle state
	State RollupState `json:"state" yaml:"state"`

	// Public chain configuration
	Chain ChainConfig `json:"chain" yaml:"chain"`

	// Mutable public metadata
	Metadata Metadata `json:"metadata" yaml:"metadata"`

	// Token bridge configuration
	Bridge BridgeConfig `json:"bridge" yaml:"bridge"`

	// Last observed health
	Health HealthStatus `json:"health" yaml:"health"`

	// Container ID of the node container, if created
	ContainerID string `json:"containerId,omitempty" yaml:"containerId,omitempty"`

	// Creation timestamp
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`

	// Last update timestamp
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Validate validates the rollup configuration.
func (r *Rollup) Validate() error {
	if r.ID == "" {
		return NewValidationError("rollup ID is required")
	}

	if r.Chain.ChainID == 0 {
		return NewValidationError("rollup chain ID is required")
	}

	if r.Chain.ParentChainRPC == "" {
		return NewValidationError("rollup parent chain RPC is required")
	}

	if r.Chain.AvailAppID == "" {
		return NewValidationError("rollup Avail app ID is required")
	}

	if r.Chain.NodeImage == "" {
		return NewValidationError("rollup node image is required")
	}

	return nil
}

// ContainerName returns the deterministic node container name for the rollup.
func (r *Rollup) ContainerName() string {
	return "orbit-node-" + r.ID
}
