// Package dispatcher serializes lifecycle job requests into driver
// executions. One rollup runs at most one transition at a time; a request
// that loses the race is rejected, never queued. Requests are validated
// in a fixed order so that every rejection happens before any side effect.
package dispatcher

import (
	"context"
	"time"

	"github.com/availops/orbitd/pkg/driver"
	"github.com/availops/orbitd/pkg/lifecycle"
	"github.com/availops/orbitd/pkg/log"
	"github.com/availops/orbitd/pkg/registry"
	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

// Dispatcher validates, admits and executes transition requests.
type Dispatcher struct {
	logger   log.Logger
	registry *registry.Registry
	driver   driver.Driver
	vault    *vault.Vault
}

// NewDispatcher creates a dispatcher bound to a registry, driver and vault.
func NewDispatcher(reg *registry.Registry, drv driver.Driver, v *vault.Vault, logger log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.GetDefaultLogger().WithComponent("dispatcher")
	} else {
		logger = logger.WithComponent("dispatcher")
	}
	return &Dispatcher{
		logger:   logger,
		registry: reg,
		driver:   drv,
		vault:    v,
	}
}

// Submit runs one transition request to completion and returns its result.
// Validation order: argument schema, rollup existence, state-machine
// admissibility, then the per-rollup lock. The driver runs only after all
// four pass; any earlier refusal leaves the record untouched.
func (d *Dispatcher) Submit(ctx context.Context, req types.TransitionRequest) types.TransitionResult {
	if err := validateArgs(req.Operation, req.Args); err != nil {
		return d.rejected(req, "", err)
	}

	current, err := d.registry.Get(req.RollupID)
	if err != nil {
		return d.rejected(req, "", err)
	}

	if _, err := lifecycle.Admit(current.State, req.Operation); err != nil {
		return d.rejected(req, current.State, err)
	}

	handle, err := d.registry.TryLock(req.RollupID)
	if err != nil {
		return d.rejected(req, current.State, err)
	}
	defer handle.Release()

	// Re-admit on the locked snapshot: the state may have moved between
	// the admissibility check and winning the lock.
	snapshot := handle.Rollup()
	inProgress, err := lifecycle.Admit(snapshot.State, req.Operation)
	if err != nil {
		return d.rejected(req, snapshot.State, err)
	}

	return d.execute(ctx, req, handle, snapshot, inProgress)
}

func (d *Dispatcher) execute(ctx context.Context, req types.TransitionRequest, handle *registry.Handle, snapshot types.Rollup, inProgress types.RollupState) types.TransitionResult {
	d.logger.Info("Executing transition",
		log.Str("rollup", req.RollupID),
		log.Str("operation", string(req.Operation)),
		log.Str("from", string(snapshot.State)))

	if err := handle.SetState(ctx, inProgress); err != nil {
		return d.rejected(req, snapshot.State, err)
	}

	// The driver sees the record as it will look after the arguments are
	// applied, so rendered artifacts match the committed result.
	updated := snapshot
	applyArgs(&updated, req.Operation, req.Args)
	updated.State = inProgress

	result, execErr := d.driver.Execute(ctx, req.Operation, &updated, d.vault)

	finalState := lifecycle.Resolve(req.Operation, execErr == nil)

	if execErr != nil {
		d.logger.Error("Transition failed",
			log.Str("rollup", req.RollupID),
			log.Str("operation", string(req.Operation)),
			log.Err(execErr))

		if err := handle.SetState(ctx, finalState); err != nil {
			d.logger.Error("Failed to record transition failure",
				log.Str("rollup", req.RollupID), log.Err(err))
		}
		d.registry.SetHealth(req.RollupID, types.HealthStatus{
			Healthy:   false,
			Reason:    execErr.Error(),
			CheckedAt: time.Now(),
		})

		return types.TransitionResult{
			RollupID:  req.RollupID,
			Operation: req.Operation,
			Outcome:   types.OutcomeFailed,
			Reason:    execErr.Error(),
			ErrorKind: types.ErrorKind(execErr),
			State:     finalState,
		}
	}

	if err := handle.Update(ctx, func(r *types.Rollup) {
		applyArgs(r, req.Operation, req.Args)
		r.State = finalState
		if result != nil && result.ContainerID != "" {
			r.ContainerID = result.ContainerID
		}
	}); err != nil {
		d.logger.Error("Failed to commit transition result",
			log.Str("rollup", req.RollupID), log.Err(err))
		return types.TransitionResult{
			RollupID:  req.RollupID,
			Operation: req.Operation,
			Outcome:   types.OutcomeFailed,
			Reason:    err.Error(),
			ErrorKind: types.ErrorKind(err),
			State:     inProgress,
		}
	}

	d.logger.Info("Transition succeeded",
		log.Str("rollup", req.RollupID),
		log.Str("operation", string(req.Operation)),
		log.Str("state", string(finalState)))

	return types.TransitionResult{
		RollupID:  req.RollupID,
		Operation: req.Operation,
		Outcome:   types.OutcomeSucceeded,
		State:     finalState,
	}
}

// SubmitJob maps an external numeric job identifier onto a transition
// request and submits it.
func (d *Dispatcher) SubmitJob(ctx context.Context, rollupID string, jobID int, args map[string]string) types.TransitionResult {
	op, ok := types.OperationForJobID(jobID)
	if !ok {
		req := types.TransitionRequest{RollupID: rollupID, Args: args}
		return d.rejected(req, "", types.NewValidationErrorf("unknown job id: %d", jobID))
	}
	return d.Submit(ctx, types.TransitionRequest{RollupID: rollupID, Operation: op, Args: args})
}

func (d *Dispatcher) rejected(req types.TransitionRequest, state types.RollupState, err error) types.TransitionResult {
	d.logger.Warn("Transition rejected",
		log.Str("rollup", req.RollupID),
		log.Str("operation", string(req.Operation)),
		log.Err(err))

	return types.TransitionResult{
		RollupID:  req.RollupID,
		Operation: req.Operation,
		Outcome:   types.OutcomeRejected,
		Reason:    err.Error(),
		ErrorKind: types.ErrorKind(err),
		State:     state,
	}
}
