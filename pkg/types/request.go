package types

// Operation is a lifecycle operation requested against a rollup.
type Operation string

const (
	// OperationDeploy deploys chain artifacts and starts the node.
	// Triggered by service bring-up, not by a runtime job.
	OperationDeploy Operation = "deploy"

	// OperationRestart stops and restarts the node containers,
	// reusing existing on-chain deployment artifacts.
	OperationRestart Operation = "restart"

	// OperationUpdateMetadata replaces the public metadata.
	OperationUpdateMetadata Operation = "update-metadata"

	// OperationUpdateBridge replaces the token bridge configuration.
	OperationUpdateBridge Operation = "update-bridge"
)

// Job identifiers on the external dispatch surface.
const (
	JobIDUpdateMetadata = 1
	JobIDRestart        = 2
	JobIDUpdateBridge   = 3
)

// OperationForJobID maps a dispatch job identifier to its operation.
func OperationForJobID(id int) (Operation, bool) {
	switch id {
	case JobIDUpdateMetadata:
		return OperationUpdateMetadata, true
	case JobIDRestart:
		return OperationRestart, true
	case JobIDUpdateBridge:
		return OperationUpdateBridge, true
	default:
		return "", false
	}
}

// ParseOperation converts an operation name from the job surface.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(s) {
	case OperationDeploy, OperationRestart, OperationUpdateMetadata, OperationUpdateBridge:
		return Operation(s), true
	default:
		return "", false
	}
}

// TransitionRequest is a state-changing job request. Args carries only
// public, schema-validated values; anything credential-shaped is rejected
// before the request reaches the state machine.
type TransitionRequest struct {
	RollupID  string            `json:"rollupId"`
	Operation Operation         `json:"operation"`
	Args      map[string]string `json:"args,omitempty"`
}

// Outcome classifies the result of a transition request.
type Outcome string

const (
	// OutcomeSucceeded indicates all side-effecting steps completed.
	OutcomeSucceeded Outcome = "Succeeded"

	// OutcomeFailed indicates a step failed after the transition was admitted.
	OutcomeFailed Outcome = "Failed"

	// OutcomeRejected indicates the request was refused before any side effect.
	OutcomeRejected Outcome = "Rejected"
)

// TransitionResult is the synchronous result of a transition request.
type TransitionResult struct {
	RollupID  string      `json:"rollupId"`
	Operation Operation   `json:"operation"`
	Outcome   Outcome     `json:"outcome"`
	Reason    string      `json:"reason,omitempty"`
	ErrorKind string      `json:"errorKind,omitempty"`
	State     RollupState `json:"state"`
}
