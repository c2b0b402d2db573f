package dispatcher

import (
	"strconv"

	"github.com/availops/orbitd/pkg/types"
	"github.com/availops/orbitd/pkg/vault"
)

// allowedArgs lists the public argument keys accepted per operation.
// Anything else is rejected, whatever its value.
var allowedArgs = map[types.Operation]map[string]bool{
	types.OperationDeploy:  {},
	types.OperationRestart: {},
	types.OperationUpdateMetadata: {
		"name":             true,
		"description":      true,
		"explorerUrl":      true,
		"localRpcEndpoint": true,
		"fallbackS3Enable": true,
	},
	types.OperationUpdateBridge: {
		"address":       true,
		"parentChainId": true,
		"enabled":       true,
	},
}

// validateArgs checks a request's arguments against the operation schema
// and the credential-shape denylist. It runs before any registry lookup,
// so a rejected request leaves no trace.
func validateArgs(op types.Operation, args map[string]string) error {
	allowed, ok := allowedArgs[op]
	if !ok {
		return types.NewValidationErrorf("unknown operation: %s", op)
	}

	for key, value := range args {
		// Credential shapes are refused even for otherwise valid keys.
		// The public job surface must never be a path for key material.
		if vault.KeyNameLooksSecret(key) {
			return types.NewValidationErrorf("argument %q is not accepted: credential-shaped key", key)
		}
		if vault.ValueLooksSecret(value) {
			return types.NewValidationErrorf("argument %q is not accepted: credential-shaped value", key)
		}
		if !allowed[key] {
			return types.NewValidationErrorf("argument %q is not valid for operation %s", key, op)
		}
	}

	switch op {
	case types.OperationUpdateMetadata:
		if v, ok := args["fallbackS3Enable"]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				return types.NewValidationError("fallbackS3Enable must be a boolean")
			}
		}
	case types.OperationUpdateBridge:
		if v, ok := args["parentChainId"]; ok {
			if _, err := strconv.ParseUint(v, 10, 64); err != nil {
				return types.NewValidationError("parentChainId must be an unsigned integer")
			}
		}
		if v, ok := args["enabled"]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				return types.NewValidationError("enabled must be a boolean")
			}
		}
	}

	return nil
}

// applyArgs writes validated arguments onto a rollup record. Only called
// after validateArgs passed, so parse errors cannot happen here.
func applyArgs(rollup *types.Rollup, op types.Operation, args map[string]string) {
	switch op {
	case types.OperationUpdateMetadata:
		if v, ok := args["name"]; ok {
			rollup.Metadata.Name = v
		}
		if v, ok := args["description"]; ok {
			rollup.Metadata.Description = v
		}
		if v, ok := args["explorerUrl"]; ok {
			rollup.Metadata.ExplorerURL = v
		}
		if v, ok := args["localRpcEndpoint"]; ok {
			rollup.Metadata.LocalRPCEndpoint = v
		}
		if v, ok := args["fallbackS3Enable"]; ok {
			rollup.Metadata.FallbackS3Enable, _ = strconv.ParseBool(v)
		}
	case types.OperationUpdateBridge:
		if v, ok := args["address"]; ok {
			rollup.Bridge.Address = v
		}
		if v, ok := args["parentChainId"]; ok {
			rollup.Bridge.ParentChainID, _ = strconv.ParseUint(v, 10, 64)
		}
		if v, ok := args["enabled"]; ok {
			rollup.Bridge.Enabled, _ = strconv.ParseBool(v)
		}
	}
}
