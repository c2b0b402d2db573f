package types

import (
	"errors"
	"fmt"
)

// ValidationError represents a request rejected for bad or secret-shaped
// arguments. It is returned before any state lookup or side effect.
type ValidationError struct {
	Message string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidStateTransitionError represents an operation that is not legal
// from the rollup's current state.
type InvalidStateTransitionError struct {
	From      RollupState
	Operation Operation
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("operation %s is not valid from state %s", e.Operation, e.From)
}

// NewInvalidStateTransitionError creates an InvalidStateTransitionError.
func NewInvalidStateTransitionError(from RollupState, op Operation) *InvalidStateTransitionError {
	return &InvalidStateTransitionError{From: from, Operation: op}
}

// IsInvalidStateTransition checks if an error is an InvalidStateTransitionError.
func IsInvalidStateTransition(err error) bool {
	var te *InvalidStateTransitionError
	return errors.As(err, &te)
}

// InstanceBusyError indicates another lifecycle transition already holds
// the rollup's lock. Callers are expected to retry.
type InstanceBusyError struct {
	RollupID string
}

func (e *InstanceBusyError) Error() string {
	return fmt.Sprintf("rollup %s has a lifecycle transition in flight", e.RollupID)
}

// NewInstanceBusyError creates an InstanceBusyError.
func NewInstanceBusyError(rollupID string) *InstanceBusyError {
	return &InstanceBusyError{RollupID: rollupID}
}

// IsInstanceBusy checks if an error is an InstanceBusyError.
func IsInstanceBusy(err error) bool {
	var be *InstanceBusyError
	return errors.As(err, &be)
}

// NotFoundError indicates the requested rollup does not exist.
type NotFoundError struct {
	RollupID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("rollup %s not found", e.RollupID)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(rollupID string) *NotFoundError {
	return &NotFoundError{RollupID: rollupID}
}

// IsNotFound checks if an error is a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// CredentialMissingError indicates a required signing credential was not
// configured. Fatal at startup; aborts a transition if discovered late.
type CredentialMissingError struct {
	Role string
}

func (e *CredentialMissingError) Error() string {
	return fmt.Sprintf("credential for role %q is not configured", e.Role)
}

// NewCredentialMissingError creates a CredentialMissingError.
func NewCredentialMissingError(role string) *CredentialMissingError {
	return &CredentialMissingError{Role: role}
}

// IsCredentialMissing checks if an error is a CredentialMissingError.
func IsCredentialMissing(err error) bool {
	var ce *CredentialMissingError
	return errors.As(err, &ce)
}

// StepFailureError indicates a process driver step exhausted its retries.
// Timeout marks deadline-exceeded failures; they follow the same path.
type StepFailureError struct {
	Step    string
	Timeout bool
	Err     error
}

func (e *StepFailureError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("step %s timed out: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepFailureError) Unwrap() error {
	return e.Err
}

// NewStepFailureError creates a StepFailureError.
func NewStepFailureError(step string, err error) *StepFailureError {
	return &StepFailureError{Step: step, Err: err}
}

// NewStepTimeoutError creates a StepFailureError marked as a timeout.
func NewStepTimeoutError(step string, err error) *StepFailureError {
	return &StepFailureError{Step: step, Timeout: true, Err: err}
}

// IsStepFailure checks if an error is a StepFailureError.
func IsStepFailure(err error) bool {
	var se *StepFailureError
	return errors.As(err, &se)
}

// ErrorKind returns a stable machine-readable classification for an
// error, suitable for transport surfaces that cannot carry Go types.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return "validation"
	case IsInvalidStateTransition(err):
		return "invalid-state"
	case IsInstanceBusy(err):
		return "busy"
	case IsNotFound(err):
		return "not-found"
	case IsCredentialMissing(err):
		return "credential-missing"
	case IsStepFailure(err):
		return "step-failure"
	default:
		return "internal"
	}
}
