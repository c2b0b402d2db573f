package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorPredicates(t *testing.T) {
	assert.True(t, IsValidationError(NewValidationError("bad args")))
	assert.True(t, IsInvalidStateTransition(NewInvalidStateTransitionError(RollupStateDeploying, OperationRestart)))
	assert.True(t, IsInstanceBusy(NewInstanceBusyError("orbit-1")))
	assert.True(t, IsNotFound(NewNotFoundError("orbit-1")))
	assert.True(t, IsCredentialMissing(NewCredentialMissingError("deployer")))
	assert.True(t, IsStepFailure(NewStepFailureError("start-node", errors.New("no such image"))))

	assert.False(t, IsValidationError(NewInstanceBusyError("orbit-1")))
	assert.False(t, IsInstanceBusy(errors.New("plain")))
	assert.False(t, IsStepFailure(nil))
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewInstanceBusyError("orbit-1"))
	assert.True(t, IsInstanceBusy(err))

	err = fmt.Errorf("deploy: %w", NewStepTimeoutError("wait-healthy", errors.New("deadline exceeded")))
	assert.True(t, IsStepFailure(err))

	var se *StepFailureError
	assert.True(t, errors.As(err, &se))
	assert.True(t, se.Timeout)
}

func TestStepFailureUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewStepFailureError("deploy-contracts", cause)
	assert.ErrorIs(t, err, cause)
}
