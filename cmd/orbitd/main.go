package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/availops/orbitd/internal/config"
	"github.com/availops/orbitd/pkg/api/rest"
	"github.com/availops/orbitd/pkg/dispatcher"
	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/health"
	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/registry"
	"github.com/availops/orbitd/pkg/store"
	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
	"github.com/availops/orbitd/pkg/version"
)

var (
	configFile = flag.String("config", "", "Configuration file path (orbitfile)")
	httpAddr   = flag.String("http-addr", "", "HTTP server address")
	dataDir    = flag.String("data-dir", "", "Data directory")
	logLevel   = flag.String("log-level", "", "Log level (debug, info, warn, error)")
	debugLogs  = flag.Bool("debug", false, "Enable debug mode (shorthand for --log-level=debug)")
	logFormat  = flag.String("log-format", "", "Log format (text, json)")
	apiKeys    = flag.String("api-keys", "", "Comma-separated list of API keys (empty to disable auth)")
	showVer    = flag.Bool("version", false, "Show version")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.Info())
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	applyFlagOverrides(cfg)

	logger := buildLogger(cfg)
	log.SetDefaultLogger(logger)

	logger.Info("Starting orbitd", log.Str("version", version.Version))

	// Credentials are loaded once; a missing required role is fatal here,
	// never mid-transition.
	creds, err := vault.Load(os.Getenv)
	if err != nil {
		logger.Error("Failed to load operator credentials", log.Err(err))
		os.Exit(1)
	}
	defer creds.Zeroize()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Received signal", log.Str("signal", sig.String()))
		cancel()
	}()

	storeDir := filepath.Join(cfg.DataDir, "store")
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		logger.Error("Failed to create data directory", log.Str("path", storeDir), log.Err(err))
		os.Exit(1)
	}

	logger.Info("Opening state store", log.Str("path", storeDir))
	stateStore := store.NewBadgerStore(logger)
	if err := stateStore.Open(storeDir); err != nil {
		logger.Error("Failed to open state store", log.Err(err))
		os.Exit(1)
	}
	defer stateStore.Close()

	reg := registry.NewRegistry(stateStore, logger)
	if err := reg.Load(ctx); err != nil {
		logger.Error("Failed to load registry", log.Err(err))
		os.Exit(1)
	}

	drv, err := driver.NewDockerDriverWithConfig(logger, reg, &driver.DockerConfig{
		APIVersion:                cfg.Docker.APIVersion,
		FallbackAPIVersion:        cfg.Docker.FallbackAPIVersion,
		NegotiationTimeoutSeconds: cfg.Docker.NegotiationTimeoutSeconds,
		DeployCommand:             cfg.Docker.DeployCommand,
		StopTimeout:               time.Duration(cfg.Docker.StopTimeoutSeconds) * time.Second,
		ReadyTimeout:              time.Duration(cfg.Health.TimeoutSeconds) * time.Second,
		ReadyInterval:             time.Duration(cfg.Health.IntervalSeconds) * time.Second,
	})
	if err != nil {
		logger.Error("Failed to create Docker driver", log.Err(err))
		os.Exit(1)
	}

	disp := dispatcher.NewDispatcher(reg, drv, creds, logger)

	// Rollups declared in the orbitfile are registered up front and
	// deployed in the background so the HTTP surface is up immediately.
	registerDeclaredRollups(ctx, logger, cfg, reg)
	go deployPendingRollups(ctx, logger, reg, disp)

	monitor := health.NewMonitor(reg, drv, logger, health.Options{
		Interval:     time.Duration(cfg.Health.IntervalSeconds) * time.Second,
		ProbeTimeout: time.Duration(cfg.Health.TimeoutSeconds) * time.Second,
	})
	if err := monitor.Start(); err != nil {
		logger.Error("Failed to start health monitor", log.Err(err))
		os.Exit(1)
	}
	defer monitor.Stop()

	if len(cfg.Auth.APIKeys) > 0 {
		logger.Info("Authentication enabled", log.Int("numKeys", len(cfg.Auth.APIKeys)))
	} else {
		logger.Warn("Authentication disabled")
	}

	server := rest.NewServer(reg, disp, drv, logger, rest.Options{
		Addr:    cfg.Server.HTTPAddr,
		APIKeys: cfg.Auth.APIKeys,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("HTTP server failed", log.Err(err))
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Failed to stop HTTP server", log.Err(err))
	}

	logger.Info("orbitd stopped")
}

// registerDeclaredRollups creates registry records for orbitfile rollups
// that are not persisted yet.
func registerDeclaredRollups(ctx context.Context, logger log.Logger, cfg *config.Config, reg *registry.Registry) {
	for _, declared := range cfg.Rollups {
		if reg.Exists(declared.ID) {
			continue
		}
		rollup := declared.ToRollup(cfg.DataDir)
		if err := reg.Create(ctx, rollup); err != nil {
			logger.Error("Failed to register declared rollup",
				log.Str("rollup", declared.ID), log.Err(err))
		}
	}
}

// deployPendingRollups deploys every rollup still in the Uninitialized
// state. Runs in the background at bring-up; failures land in the record
// and can be retried with a deploy job.
func deployPendingRollups(ctx context.Context, logger log.Logger, reg *registry.Registry, disp *dispatcher.Dispatcher) {
	for _, rollup := range reg.List() {
		if rollup.State != types.RollupStateUninitialized {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		logger.Info("Deploying rollup at bring-up", log.Str("rollup", rollup.ID))
		result := disp.Submit(ctx, types.TransitionRequest{
			RollupID:  rollup.ID,
			Operation: types.OperationDeploy,
		})
		if result.Outcome != types.OutcomeSucceeded {
			logger.Error("Bring-up deploy did not complete",
				log.Str("rollup", rollup.ID),
				log.Str("outcome", string(result.Outcome)),
				log.Str("reason", result.Reason))
		}
	}
}

func applyFlagOverrides(cfg *config.Config) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) {
		set[f.Name] = true
	})

	if set["http-addr"] {
		cfg.Server.HTTPAddr = *httpAddr
	}
	if set["data-dir"] {
		cfg.DataDir = *dataDir
	}
	if set["log-level"] {
		cfg.Log.Level = *logLevel
	}
	if set["log-format"] {
		cfg.Log.Format = *logFormat
	}
	if *debugLogs {
		cfg.Log.Level = "debug"
	}
	if set["api-keys"] {
		cfg.Auth.APIKeys = splitCSV(*apiKeys)
	}
}

func buildLogger(cfg *config.Config) log.Logger {
	var opts []log.LoggerOption

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		fmt.Printf("Invalid log level: %s, defaulting to 'info'\n", cfg.Log.Level)
		level = log.InfoLevel
	}
	opts = append(opts, log.WithLevel(level))

	switch strings.ToLower(cfg.Log.Format) {
	case "json":
		opts = append(opts, log.WithFormatter(&log.JSONFormatter{}))
	default:
		opts = append(opts, log.WithFormatter(log.NewTextFormatter()))
	}

	return log.NewLogger(opts...)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
