package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	imageTypes "github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

// Ports inside the node container. Host ports come from the rollup record.
const (
	containerRPCPort     = "8449/tcp"
	containerMetricsPort = "6070/tcp"
	containerConfigPath  = "/config"
)

// DockerConfig holds Docker driver configuration options.
type DockerConfig struct {
	// APIVersion pins the Docker API version. Empty means auto-negotiation.
	APIVersion string

	// FallbackAPIVersion is used when auto-negotiation fails.
	FallbackAPIVersion string

	// Timeout for API version negotiation in seconds.
	NegotiationTimeoutSeconds int

	// DeployCommand is the external chain-deployment tooling invoked during
	// deploy, run in the rollup work directory. Empty means the chain step
	// is skipped (containers only).
	DeployCommand []string

	// StopTimeout is the grace period for container stop.
	StopTimeout time.Duration

	// ReadyTimeout and ReadyInterval bound the post-start readiness poll.
	ReadyTimeout  time.Duration
	ReadyInterval time.Duration
}

// DefaultDockerConfig returns the default Docker driver configuration.
func DefaultDockerConfig() *DockerConfig {
	return &DockerConfig{
		APIVersion:                "",
		FallbackAPIVersion:        "1.43",
		NegotiationTimeoutSeconds: 3,
		StopTimeout:               30 * time.Second,
		ReadyTimeout:              60 * time.Second,
		ReadyInterval:             time.Second,
	}
}

// Validate that DockerDriver implements the Driver interface.
var _ Driver = &DockerDriver{}

// DockerDriver implements Driver on the Docker Engine API.
type DockerDriver struct {
	client *client.Client
	logger log.Logger
	sink   LogSink
	config *DockerConfig
}

// NewDockerDriver creates a DockerDriver with the default configuration.
func NewDockerDriver(logger log.Logger, sink LogSink) (*DockerDriver, error) {
	return NewDockerDriverWithConfig(logger, sink, DefaultDockerConfig())
}

// NewDockerDriverWithConfig creates a DockerDriver with a specific configuration.
func NewDockerDriverWithConfig(logger log.Logger, sink LogSink, config *DockerConfig) (*DockerDriver, error) {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("docker-driver")
	} else {
		logger = logger.WithComponent("docker-driver")
	}
	if sink == nil {
		sink = noopSink{}
	}
	if config == nil {
		config = DefaultDockerConfig()
	}

	cli, err := createClientWithVersionHandling(logger, config)
	if err != nil {
		return nil, err
	}

	return &DockerDriver{
		client: cli,
		logger: logger,
		sink:   sink,
		config: config,
	}, nil
}

// createClientWithVersionHandling creates a Docker client with appropriate
// API version handling.
func createClientWithVersionHandling(logger log.Logger, config *DockerConfig) (*client.Client, error) {
	if config.APIVersion != "" {
		logger.Info("Using specified Docker API version",
			log.Str("api_version", config.APIVersion))
		return client.NewClientWithOpts(client.FromEnv, client.WithVersion(config.APIVersion))
	}

	cli, err := client.NewClientWithOpts(client.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	negotiationTimeout := time.Duration(config.NegotiationTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), negotiationTimeout)
	defer cancel()

	cli.NegotiateAPIVersion(ctx)
	clientVersion := cli.ClientVersion()
	logger.Info("Using negotiated Docker API version", log.Str("api_version", clientVersion))

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer pingCancel()

	if _, err := cli.Ping(pingCtx); err != nil {
		if strings.Contains(err.Error(), "client version") && strings.Contains(err.Error(), "too new") {
			logger.Warn("Docker API version mismatch, falling back to compatibility version",
				log.Str("current_version", clientVersion),
				log.Str("fallback_version", config.FallbackAPIVersion),
				log.Err(err))
			return client.NewClientWithOpts(client.FromEnv, client.WithVersion(config.FallbackAPIVersion))
		}
		logger.Warn("Docker ping error (continuing anyway)", log.Err(err))
	}

	return cli, nil
}

// Execute runs a lifecycle operation against the node container.
func (d *DockerDriver) Execute(ctx context.Context, op types.Operation, rollup *types.Rollup, creds *vault.Vault) (*Result, error) {
	switch op {
	case types.OperationDeploy:
		return d.deploy(ctx, rollup, creds)
	case types.OperationRestart:
		return d.restart(ctx, rollup)
	case types.OperationUpdateMetadata:
		return d.updateMetadata(ctx, rollup, creds)
	case types.OperationUpdateBridge:
		return d.updateBridge(ctx, rollup, creds)
	default:
		return nil, types.NewValidationErrorf("unknown operation: %s", op)
	}
}

// deploy brings a rollup up from scratch. Completed chain-side work leaves
// step markers in the work directory, so a retry after a partial failure
// skips what already succeeded and only recreates the node container.
// Markers carry the chain config fingerprint they were made under; a
// deploy with different chain inputs discards them and redoes the chain
// deployment.
func (d *DockerDriver) deploy(ctx context.Context, rollup *types.Rollup, creds *vault.Vault) (*Result, error) {
	result := &Result{}
	workDir := rollup.Chain.WorkDir
	fingerprint := chainFingerprint(rollup)

	steps := []step{
		{
			name:     "render-artifacts",
			attempts: 1,
			run: func(ctx context.Context) error {
				return renderArtifacts(rollup, creds)
			},
		},
		{
			name:    "deploy-chain",
			timeout: 20 * time.Minute,
			run: func(ctx context.Context) error {
				if len(d.config.DeployCommand) == 0 {
					return nil
				}
				if markerMatches(workDir, "deploy-chain", fingerprint) {
					d.sink.AppendLog(rollup.ID, "step deploy-chain: reusing previous chain deployment")
					return nil
				}
				if err := clearMarkers(workDir); err != nil {
					return err
				}
				if err := d.runDeployCommand(ctx, rollup); err != nil {
					return err
				}
				return writeMarker(workDir, "deploy-chain", fingerprint)
			},
		},
		{
			name: "start-node",
			run: func(ctx context.Context) error {
				containerID, err := d.recreateContainer(ctx, rollup, creds)
				if err != nil {
					return err
				}
				result.ContainerID = containerID
				return d.startContainer(ctx, containerID)
			},
		},
		{
			name:     "await-ready",
			attempts: 1,
			timeout:  d.config.ReadyTimeout,
			run: func(ctx context.Context) error {
				return d.awaitRunning(ctx, result.ContainerID)
			},
		},
	}

	if err := runSteps(ctx, d.logger, d.sink, rollup.ID, steps); err != nil {
		return result, err
	}

	d.logger.Info("Deployed rollup node",
		log.Str("rollup", rollup.ID),
		log.Str("container_id", result.ContainerID))
	return result, nil
}

// restart stops and starts the existing node container. No artifacts are
// re-rendered and no chain deployment runs.
func (d *DockerDriver) restart(ctx context.Context, rollup *types.Rollup) (*Result, error) {
	containerID, err := d.getContainerID(ctx, rollup)
	if err != nil {
		return nil, types.NewStepFailureError("find-node", err)
	}
	result := &Result{ContainerID: containerID}

	steps := []step{
		{
			name: "stop-node",
			run: func(ctx context.Context) error {
				return d.stopContainer(ctx, containerID)
			},
		},
		{
			name: "start-node",
			run: func(ctx context.Context) error {
				return d.startContainer(ctx, containerID)
			},
		},
		{
			name:     "await-ready",
			attempts: 1,
			timeout:  d.config.ReadyTimeout,
			run: func(ctx context.Context) error {
				return d.awaitRunning(ctx, containerID)
			},
		},
	}

	if err := runSteps(ctx, d.logger, d.sink, rollup.ID, steps); err != nil {
		return result, err
	}
	return result, nil
}

// updateMetadata re-renders the node artifacts with the updated record.
// The running container picks the config up on its next restart; no
// process disruption happens here.
func (d *DockerDriver) updateMetadata(ctx context.Context, rollup *types.Rollup, creds *vault.Vault) (*Result, error) {
	steps := []step{
		{
			name:     "render-artifacts",
			attempts: 1,
			run: func(ctx context.Context) error {
				return renderArtifacts(rollup, creds)
			},
		},
	}
	if err := runSteps(ctx, d.logger, d.sink, rollup.ID, steps); err != nil {
		return nil, err
	}
	return &Result{ContainerID: rollup.ContainerID}, nil
}

// updateBridge re-renders the node artifacts and reloads the node so the
// bridge change takes effect immediately.
func (d *DockerDriver) updateBridge(ctx context.Context, rollup *types.Rollup, creds *vault.Vault) (*Result, error) {
	containerID, err := d.getContainerID(ctx, rollup)
	if err != nil {
		return nil, types.NewStepFailureError("find-node", err)
	}
	result := &Result{ContainerID: containerID}

	steps := []step{
		{
			name:     "render-artifacts",
			attempts: 1,
			run: func(ctx context.Context) error {
				return renderArtifacts(rollup, creds)
			},
		},
		{
			name: "reload-node",
			run: func(ctx context.Context) error {
				if err := d.stopContainer(ctx, containerID); err != nil {
					return err
				}
				return d.startContainer(ctx, containerID)
			},
		},
		{
			name:     "await-ready",
			attempts: 1,
			timeout:  d.config.ReadyTimeout,
			run: func(ctx context.Context) error {
				return d.awaitRunning(ctx, containerID)
			},
		},
	}

	if err := runSteps(ctx, d.logger, d.sink, rollup.ID, steps); err != nil {
		return result, err
	}
	return result, nil
}

// Status inspects the node container and returns a health observation.
func (d *DockerDriver) Status(ctx context.Context, rollup *types.Rollup) (types.HealthStatus, error) {
	now := time.Now()

	containerID, err := d.getContainerID(ctx, rollup)
	if err != nil {
		return types.HealthStatus{Healthy: false, Reason: "no node container", CheckedAt: now}, nil
	}

	inspect, err := d.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return types.HealthStatus{}, fmt.Errorf("failed to inspect container: %w", err)
	}

	if inspect.State.Running {
		return types.HealthStatus{Healthy: true, CheckedAt: now}, nil
	}
	reason := fmt.Sprintf("container %s (exit code %d)", inspect.State.Status, inspect.State.ExitCode)
	return types.HealthStatus{Healthy: false, Reason: reason, CheckedAt: now}, nil
}

// Logs returns recent lines from the node container.
func (d *DockerDriver) Logs(ctx context.Context, rollup *types.Rollup, tail int) ([]string, error) {
	containerID, err := d.getContainerID(ctx, rollup)
	if err != nil {
		return nil, fmt.Errorf("failed to find node container: %w", err)
	}

	tailStr := "all"
	if tail > 0 {
		tailStr = fmt.Sprintf("%d", tail)
	}

	raw, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       tailStr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer raw.Close()

	// Docker multiplexes stdout and stderr, so the stream headers have to
	// be stripped before splitting into lines.
	var lines []string
	scanner := bufio.NewScanner(newLogReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.ErrUnexpectedEOF {
		return lines, fmt.Errorf("failed to read container logs: %w", err)
	}
	return lines, nil
}

// runDeployCommand runs the external chain-deployment tooling in the work
// directory. The rendered env file carries the signing credentials; nothing
// secret appears on the command line.
func (d *DockerDriver) runDeployCommand(ctx context.Context, rollup *types.Rollup) error {
	cmd := exec.CommandContext(ctx, d.config.DeployCommand[0], d.config.DeployCommand[1:]...)
	cmd.Dir = rollup.Chain.WorkDir

	out, err := cmd.CombinedOutput()
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if line != "" {
			d.sink.AppendLog(rollup.ID, "deploy: "+line)
		}
	}
	if err != nil {
		return fmt.Errorf("chain deployment command failed: %w", err)
	}
	return nil
}

// recreateContainer force-removes any previous node container for the
// rollup and creates a fresh one from the current record.
func (d *DockerDriver) recreateContainer(ctx context.Context, rollup *types.Rollup, creds *vault.Vault) (string, error) {
	if existing, err := d.getContainerID(ctx, rollup); err == nil {
		d.logger.Debug("Removing previous node container",
			log.Str("rollup", rollup.ID),
			log.Str("container_id", existing))
		if err := d.client.ContainerRemove(ctx, existing, container.RemoveOptions{Force: true}); err != nil {
			return "", fmt.Errorf("failed to remove previous container: %w", err)
		}
	}

	if err := d.pullImage(ctx, rollup.Chain.NodeImage); err != nil {
		return "", retryable(fmt.Errorf("failed to pull image %s: %w", rollup.Chain.NodeImage, err))
	}

	containerConfig, hostConfig, err := d.rollupToContainerConfig(rollup, creds)
	if err != nil {
		return "", err
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, rollup.ContainerName())
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	d.logger.Info("Created node container",
		log.Str("rollup", rollup.ID),
		log.Str("container_id", resp.ID))
	return resp.ID, nil
}

func (d *DockerDriver) startContainer(ctx context.Context, containerID string) error {
	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	return nil
}

func (d *DockerDriver) stopContainer(ctx context.Context, containerID string) error {
	timeoutSeconds := int(d.config.StopTimeout.Seconds())
	if err := d.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeoutSeconds}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	return nil
}

// awaitRunning polls the container until it is running. A container that
// exits during the poll fails immediately.
func (d *DockerDriver) awaitRunning(ctx context.Context, containerID string) error {
	interval := d.config.ReadyInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		inspect, err := d.client.ContainerInspect(ctx, containerID)
		if err != nil {
			return fmt.Errorf("failed to inspect container: %w", err)
		}
		if inspect.State.Running {
			return nil
		}
		if inspect.State.Status == "exited" {
			return fmt.Errorf("container exited with code %d before becoming ready", inspect.State.ExitCode)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("node not ready: %w", ctx.Err())
		}
	}
}

// getContainerID finds the node container for a rollup. The recorded
// container ID is tried first, then a label lookup.
func (d *DockerDriver) getContainerID(ctx context.Context, rollup *types.Rollup) (string, error) {
	if rollup.ContainerID != "" {
		if _, err := d.client.ContainerInspect(ctx, rollup.ContainerID); err == nil {
			return rollup.ContainerID, nil
		}
	}

	args := filters.NewArgs(
		filters.Arg("label", "orbitd.managed=true"),
		filters.Arg("label", "orbitd.rollup.id="+rollup.ID),
	)

	containers, err := d.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: args,
	})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return "", fmt.Errorf("no container found for rollup: %s", rollup.ID)
	}
	if len(containers) > 1 {
		d.logger.Warn("Multiple containers found for rollup",
			log.Str("rollup", rollup.ID),
			log.Int("container_count", len(containers)))
	}

	return containers[0].ID, nil
}

// pullImage pulls an image from the registry if it doesn't exist locally.
func (d *DockerDriver) pullImage(ctx context.Context, image string) error {
	_, _, err := d.client.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}

	d.logger.Info("Pulling node image", log.Str("image", image))

	reader, err := d.client.ImagePull(ctx, image, imageTypes.PullOptions{})
	if err != nil {
		return err
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// rollupToContainerConfig builds the Docker container and host configs for
// a rollup node. Signing credentials travel only through the container
// environment, never through labels or the command line.
func (d *DockerDriver) rollupToContainerConfig(rollup *types.Rollup, creds *vault.Vault) (*container.Config, *container.HostConfig, error) {
	rpcPort, err := nat.NewPort("tcp", "8449")
	if err != nil {
		return nil, nil, err
	}
	metricsPort, err := nat.NewPort("tcp", "6070")
	if err != nil {
		return nil, nil, err
	}

	env := []string{
		fmt.Sprintf("PARENT_CHAIN_RPC=%s", rollup.Chain.ParentChainRPC),
		fmt.Sprintf("AVAIL_APP_ID=%s", rollup.Chain.AvailAppID),
		fmt.Sprintf("CHAIN_ID=%d", rollup.Chain.ChainID),
	}
	if creds != nil {
		for _, er := range envRoles {
			cap, err := creds.Get(er.role)
			if err != nil {
				if !er.required {
					continue
				}
				return nil, nil, err
			}
			env = append(env, strings.TrimSuffix(cap.EnvLine(er.key), "\n"))
		}
	}

	containerConfig := &container.Config{
		Image: rollup.Chain.NodeImage,
		Labels: map[string]string{
			"orbitd.managed":   "true",
			"orbitd.rollup.id": rollup.ID,
		},
		Env: env,
		ExposedPorts: nat.PortSet{
			rpcPort:     struct{}{},
			metricsPort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			rpcPort: []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", rollup.Chain.RPCPort)},
			},
			metricsPort: []nat.PortBinding{
				{HostIP: "0.0.0.0", HostPort: fmt.Sprintf("%d", rollup.Chain.MetricsPort)},
			},
		},
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped},
	}

	if rollup.Chain.WorkDir != "" {
		hostConfig.Mounts = []mount.Mount{
			{
				Type:     mount.TypeBind,
				Source:   rollup.Chain.WorkDir,
				Target:   containerConfigPath,
				ReadOnly: true,
			},
		}
	}

	return containerConfig, hostConfig, nil
}
