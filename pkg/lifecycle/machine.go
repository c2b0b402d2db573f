// Package lifecycle holds the rollup lifecycle state machine. It is pure
// logic: admissibility and state resolution are functions of (state,
// operation) with no I/O, so the transition table is testable on its own.
package lifecycle

import (
	"github.com/availops/orbitd/pkg/types"
)

// transition describes one row of the transition table.
type transition struct {
	sources    []types.RollupState
	inProgress types.RollupState
	onSuccess  types.RollupState
	onFailure  types.RollupState
}

// The transition table. Deploy and Restart recover from Failed; update
// operations leave the rollup Running even when they fail, since they
// never touch the container set destructively.
var transitions = map[types.Operation]transition{
	types.OperationDeploy: {
		sources:    []types.RollupState{types.RollupStateUninitialized, types.RollupStateFailed},
		inProgress: types.RollupStateDeploying,
		onSuccess:  types.RollupStateRunning,
		onFailure:  types.RollupStateFailed,
	},
	types.OperationRestart: {
		sources:    []types.RollupState{types.RollupStateRunning, types.RollupStateFailed},
		inProgress: types.RollupStateRestarting,
		onSuccess:  types.RollupStateRunning,
		onFailure:  types.RollupStateFailed,
	},
	types.OperationUpdateMetadata: {
		sources:    []types.RollupState{types.RollupStateRunning},
		inProgress: types.RollupStateUpdating,
		onSuccess:  types.RollupStateRunning,
		onFailure:  types.RollupStateRunning,
	},
	types.OperationUpdateBridge: {
		sources:    []types.RollupState{types.RollupStateRunning},
		inProgress: types.RollupStateUpdating,
		onSuccess:  types.RollupStateRunning,
		onFailure:  types.RollupStateRunning,
	},
}

// Admit decides whether an operation is legal from the given state.
// On success it returns the in-progress state the rollup enters while the
// transition's side-effecting steps run.
func Admit(state types.RollupState, op types.Operation) (types.RollupState, error) {
	t, ok := transitions[op]
	if !ok {
		return "", types.NewInvalidStateTransitionError(state, op)
	}

	for _, s := range t.sources {
		if s == state {
			return t.inProgress, nil
		}
	}

	return "", types.NewInvalidStateTransitionError(state, op)
}

// Resolve returns the terminal state for an operation given whether its
// steps succeeded. Only call Resolve for operations previously admitted.
func Resolve(op types.Operation, succeeded bool) types.RollupState {
	t, ok := transitions[op]
	if !ok {
		return types.RollupStateFailed
	}
	if succeeded {
		return t.onSuccess
	}
	return t.onFailure
}

// ValidSources returns the source states an operation is admitted from.
func ValidSources(op types.Operation) []types.RollupState {
	t, ok := transitions[op]
	if !ok {
		return nil
	}
	out := make([]types.RollupState, len(t.sources))
	copy(out, t.sources)
	return out
}
