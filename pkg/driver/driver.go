// Package driver executes lifecycle operations against the rollup node
// processes. A driver owns everything below a transition: rendering node
// artifacts, running the chain deployment tooling and managing the node
// container. It never mutates the registry; the dispatcher does that with
// the driver's result.
package driver

import (
	"context"

	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

// Driver executes lifecycle operations for rollup nodes.
type Driver interface {
	// Execute runs the given operation to completion. The rollup record is
	// a snapshot; any resulting changes (container ID) are reported in the
	// Result for the caller to persist.
	Execute(ctx context.Context, op types.Operation, rollup *types.Rollup, creds *vault.Vault) (*Result, error)

	// Status probes the node process and returns a health observation.
	Status(ctx context.Context, rollup *types.Rollup) (types.HealthStatus, error)

	// Logs returns up to tail recent lines from the node process.
	// tail <= 0 means all available.
	Logs(ctx context.Context, rollup *types.Rollup, tail int) ([]string, error)
}

// Result reports the side effects of a completed operation.
type Result struct {
	// ContainerID of the node container after the operation, if one exists.
	ContainerID string
}

// LogSink receives operation progress lines, keyed by rollup ID. The
// registry satisfies this interface.
type LogSink interface {
	AppendLog(id, line string)
}

type noopSink struct{}

func (noopSink) AppendLog(string, string) {}
