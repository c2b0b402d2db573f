package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/availops/orbitd/pkg/types"
)

var (
	// DefaultHTTPPort is the default HTTP port for orbitd.
	DefaultHTTPPort = 8080
	// DefaultChainID is used when a rollup omits its chain id.
	DefaultChainID = uint64(20121999)
	// DefaultRPCPort is the default host port for the rollup RPC endpoint.
	DefaultRPCPort = 8449
	// DefaultMetricsPort is the default host port for node metrics.
	DefaultMetricsPort = 6070
	// DefaultNodeImage is the node container image.
	DefaultNodeImage = "availj/avail-nitro-node:v2.1.0-upstream-v3.1.1"
)

type Server struct {
	HTTPAddr string `yaml:"http_address" mapstructure:"http_address"`
}

type Docker struct {
	APIVersion                string   `yaml:"api_version" mapstructure:"api_version"`
	FallbackAPIVersion        string   `yaml:"fallback_api_version" mapstructure:"fallback_api_version"`
	NegotiationTimeoutSeconds int      `yaml:"negotiation_timeout_seconds" mapstructure:"negotiation_timeout_seconds"`
	DeployCommand             []string `yaml:"deploy_command" mapstructure:"deploy_command"`
	StopTimeoutSeconds        int      `yaml:"stop_timeout_seconds" mapstructure:"stop_timeout_seconds"`
}

type Health struct {
	IntervalSeconds int `yaml:"interval_seconds" mapstructure:"interval_seconds"`
	TimeoutSeconds  int `yaml:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type Auth struct {
	APIKeys []string `yaml:"api_keys" mapstructure:"api_keys"`
}

// Metadata mirrors the public metadata block of a declared rollup.
type Metadata struct {
	Name             string `yaml:"name" mapstructure:"name"`
	Description      string `yaml:"description" mapstructure:"description"`
	ExplorerURL      string `yaml:"explorer_url" mapstructure:"explorer_url"`
	LocalRPCEndpoint string `yaml:"local_rpc_endpoint" mapstructure:"local_rpc_endpoint"`
	FallbackS3Enable bool   `yaml:"fallback_s3_enable" mapstructure:"fallback_s3_enable"`
}

// Rollup declares one managed rollup in the orbitfile. Rollups declared
// here are registered at startup and deployed in the background if they
// have never been deployed.
type Rollup struct {
	ID             string   `yaml:"id" mapstructure:"id"`
	ChainID        uint64   `yaml:"chain_id" mapstructure:"chain_id"`
	ChainName      string   `yaml:"chain_name" mapstructure:"chain_name"`
	ParentChainRPC string   `yaml:"parent_chain_rpc" mapstructure:"parent_chain_rpc"`
	AvailAppID     string   `yaml:"avail_app_id" mapstructure:"avail_app_id"`
	AvailRPC       string   `yaml:"avail_rpc" mapstructure:"avail_rpc"`
	NodeImage      string   `yaml:"node_image" mapstructure:"node_image"`
	RPCPort        int      `yaml:"rpc_port" mapstructure:"rpc_port"`
	MetricsPort    int      `yaml:"metrics_port" mapstructure:"metrics_port"`
	WorkDir        string   `yaml:"work_dir" mapstructure:"work_dir"`
	Metadata       Metadata `yaml:"metadata" mapstructure:"metadata"`
}

type Config struct {
	Server  Server   `yaml:"server" mapstructure:"server"`
	DataDir string   `yaml:"data_dir" mapstructure:"data_dir"`
	Docker  Docker   `yaml:"docker" mapstructure:"docker"`
	Health  Health   `yaml:"health" mapstructure:"health"`
	Log     Log      `yaml:"log" mapstructure:"log"`
	Auth    Auth     `yaml:"auth" mapstructure:"auth"`
	Rollups []Rollup `yaml:"rollups" mapstructure:"rollups"`
}

func Default() *Config {
	return &Config{
		Server:  Server{HTTPAddr: fmt.Sprintf(":%d", DefaultHTTPPort)},
		DataDir: defaultDataDir(),
		Docker:  Docker{FallbackAPIVersion: "1.43", NegotiationTimeoutSeconds: 3, StopTimeoutSeconds: 30},
		Health:  Health{IntervalSeconds: 1, TimeoutSeconds: 60},
		Log:     Log{Level: "info", Format: "text"},
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		return "./data"
	}
	if st, err := os.Stat("/var/lib"); err == nil && st.IsDir() {
		return "/var/lib/orbitd"
	}
	return filepath.Join(home, ".orbitd")
}

// ToRollup converts a declared rollup into a registry record, filling in
// defaults for omitted fields.
func (r Rollup) ToRollup(dataDir string) *types.Rollup {
	chainID := r.ChainID
	if chainID == 0 {
		chainID = DefaultChainID
	}
	nodeImage := r.NodeImage
	if nodeImage == "" {
		nodeImage = DefaultNodeImage
	}
	rpcPort := r.RPCPort
	if rpcPort == 0 {
		rpcPort = DefaultRPCPort
	}
	metricsPort := r.MetricsPort
	if metricsPort == 0 {
		metricsPort = DefaultMetricsPort
	}
	workDir := r.WorkDir
	if workDir == "" {
		workDir = filepath.Join(dataDir, "rollups", r.ID)
	}

	return &types.Rollup{
		ID:    r.ID,
		State: types.RollupStateUninitialized,
		Chain: types.ChainConfig{
			ChainID:        chainID,
			ChainName:      r.ChainName,
			ParentChainRPC: r.ParentChainRPC,
			AvailAppID:     r.AvailAppID,
			AvailRPC:       r.AvailRPC,
			NodeImage:      nodeImage,
			RPCPort:        rpcPort,
			MetricsPort:    metricsPort,
			WorkDir:        workDir,
		},
		Metadata: types.Metadata{
			Name:             r.Metadata.Name,
			Description:      r.Metadata.Description,
			ExplorerURL:      r.Metadata.ExplorerURL,
			LocalRPCEndpoint: r.Metadata.LocalRPCEndpoint,
			FallbackS3Enable: r.Metadata.FallbackS3Enable,
		},
	}
}

// Load reads the orbitfile. An explicit path is used as-is; otherwise the
// working directory and /etc/orbitd are searched. ORBITD_* environment
// variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("orbitfile")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/orbitd/")
	}

	v.SetEnvPrefix("ORBITD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Default()
	if err := v.ReadInConfig(); err != nil {
		// A missing orbitfile is fine when no path was forced; rollups
		// can still be registered over the API. A found-but-broken file
		// is never fine.
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", v.ConfigFileUsed(), err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}
