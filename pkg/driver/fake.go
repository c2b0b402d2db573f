package driver

import (
	"context"
	"sync"

	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

// FakeCall records one Execute invocation on the fake driver.
type FakeCall struct {
	Operation types.Operation
	RollupID  string
	State     types.RollupState
}

// FakeDriver is an in-memory Driver for tests. It records calls and
// returns configured results without touching Docker.
type FakeDriver struct {
	mu    sync.Mutex
	calls []FakeCall

	// ExecuteErr, when set for an operation, is returned by Execute.
	ExecuteErr map[types.Operation]error

	// ContainerID is reported in every successful Result.
	ContainerID string

	// StatusResult and StatusErr configure Status.
	StatusResult types.HealthStatus
	StatusErr    error

	// LogLines and LogsErr configure Logs.
	LogLines []string
	LogsErr  error

	// Started, when non-nil, is closed once on first Execute entry.
	Started chan struct{}
	started sync.Once

	// Block, when non-nil, makes Execute wait until the channel is closed
	// or the context is canceled.
	Block chan struct{}
}

var _ Driver = &FakeDriver{}

// NewFakeDriver creates a fake driver with a fixed container ID.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{
		ContainerID: "fake-container",
		ExecuteErr:  make(map[types.Operation]error),
	}
}

func (f *FakeDriver) Execute(ctx context.Context, op types.Operation, rollup *types.Rollup, creds *vault.Vault) (*Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, FakeCall{Operation: op, RollupID: rollup.ID, State: rollup.State})
	f.mu.Unlock()

	if f.Started != nil {
		f.started.Do(func() { close(f.Started) })
	}

	if f.Block != nil {
		select {
		case <-f.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.ExecuteErr[op]; err != nil {
		return nil, err
	}
	return &Result{ContainerID: f.ContainerID}, nil
}

func (f *FakeDriver) Status(ctx context.Context, rollup *types.Rollup) (types.HealthStatus, error) {
	return f.StatusResult, f.StatusErr
}

func (f *FakeDriver) Logs(ctx context.Context, rollup *types.Rollup, tail int) ([]string, error) {
	if f.LogsErr != nil {
		return nil, f.LogsErr
	}
	if tail > 0 && tail < len(f.LogLines) {
		return f.LogLines[len(f.LogLines)-tail:], nil
	}
	return f.LogLines, nil
}

// Calls returns a copy of the recorded Execute calls.
func (f *FakeDriver) Calls() []FakeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]FakeCall, len(f.calls))
	copy(out, f.calls)
	return out
}
