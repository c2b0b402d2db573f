// Package health periodically probes the managed rollup nodes and writes
// the observations into the registry. Probes are best effort: a probe
// failure marks the rollup unhealthy but never triggers a transition.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/registry"
	"github.com/availops/orbitd/pkg/types"
)

// Options configures the health monitor.
type Options struct {
	// Interval between probe rounds. Zero means 1 second.
	Interval time.Duration

	// ProbeTimeout bounds one full probe round. Zero means 60 seconds.
	ProbeTimeout time.Duration
}

// Monitor polls node status on a fixed schedule.
type Monitor struct {
	logger   log.Logger
	registry *registry.Registry
	driver   driver.Driver
	options  Options
	cron     *cron.Cron
}

// NewMonitor creates a health monitor over a registry and driver.
func NewMonitor(reg *registry.Registry, drv driver.Driver, logger log.Logger, options Options) *Monitor {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("health")
	} else {
		logger = logger.WithComponent("health")
	}
	if options.Interval <= 0 {
		options.Interval = time.Second
	}
	if options.ProbeTimeout <= 0 {
		options.ProbeTimeout = 60 * time.Second
	}

	return &Monitor{
		logger:   logger,
		registry: reg,
		driver:   drv,
		options:  options,
		cron:     cron.New(cron.WithSeconds()),
	}
}

// Start schedules the probe rounds. Returns an error only if the schedule
// cannot be registered.
func (m *Monitor) Start() error {
	seconds := int(m.options.Interval.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	spec := fmt.Sprintf("*/%d * * * * *", seconds)

	_, err := m.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.options.ProbeTimeout)
		defer cancel()
		m.ProbeAll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule health probes: %w", err)
	}

	m.cron.Start()
	m.logger.Info("Health monitor started",
		log.Duration("interval", m.options.Interval))
	return nil
}

// Stop halts the schedule and waits for a running round to finish.
func (m *Monitor) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.logger.Info("Health monitor stopped")
}

// ProbeAll runs one probe round over every rollup with a live node.
func (m *Monitor) ProbeAll(ctx context.Context) {
	for _, rollup := range m.registry.List() {
		if !probeable(rollup.State) {
			continue
		}

		status, err := m.driver.Status(ctx, &rollup)
		if err != nil {
			m.logger.Debug("Health probe failed",
				log.Str("rollup", rollup.ID), log.Err(err))
			status = types.HealthStatus{
				Healthy:   false,
				Reason:    fmt.Sprintf("probe failed: %v", err),
				CheckedAt: time.Now(),
			}
		}

		m.registry.SetHealth(rollup.ID, status)
	}
}

// probeable reports whether a state implies a node process worth probing.
// In-progress states are skipped; the transition owns the node meanwhile.
func probeable(state types.RollupState) bool {
	return state == types.RollupStateRunning || state == types.RollupStateFailed
}
