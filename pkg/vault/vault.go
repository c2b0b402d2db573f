// Package vault loads and holds operator signing credentials. Credentials
// are read once at startup from the environment, live only in memory, and
// are exposed solely as capability handles. No code path reachable from
// the public job-argument surface can obtain one: the dispatcher validates
// arguments against the vault's secret patterns but never calls Get.
package vault

import (
	"github.com/availops/orbitd/pkg/types"
)

// Role identifies a credential by its function.
type Role string

const (
	// RoleDeployer signs parent-chain contract deployment transactions.
	RoleDeployer Role = "deployer"

	// RoleBatchPoster signs DA batch submissions.
	RoleBatchPoster Role = "batchPoster"

	// RoleValidator signs validator stakes and challenges.
	RoleValidator Role = "validator"

	// RoleAvailSeed is the Avail account seed used for DA submissions.
	RoleAvailSeed Role = "availSeed"

	// RoleS3AccessKey and RoleS3SecretKey back the optional S3 blob
	// fallback. They are passed through to the node, never used here.
	RoleS3AccessKey Role = "s3AccessKey"
	RoleS3SecretKey Role = "s3SecretKey"
)

// requiredRoles must be configured for the daemon to start.
var requiredRoles = []Role{RoleDeployer, RoleBatchPoster, RoleValidator, RoleAvailSeed}

// Getenv is the environment lookup used by Load. Injectable for tests.
type Getenv func(key string) string

// Environment variable names for each role.
var envNames = map[Role]string{
	RoleDeployer:    "DEPLOYER_PRIVATE_KEY",
	RoleBatchPoster: "BATCH_POSTER_PRIVATE_KEY",
	RoleValidator:   "VALIDATOR_PRIVATE_KEY",
	RoleAvailSeed:   "AVAIL_ADDR_SEED",
	RoleS3AccessKey: "FALLBACKS3_ACCESS_KEY",
	RoleS3SecretKey: "FALLBACKS3_SECRET_KEY",
}

// Vault holds credentials for the process lifetime.
type Vault struct {
	creds map[Role]*SigningCapability
}

// Load reads credentials from the environment. All required roles must be
// present; optional roles are loaded when set. The vault never re-reads
// its source after startup.
func Load(getenv Getenv) (*Vault, error) {
	creds := make(map[Role]*SigningCapability)

	for role, env := range envNames {
		value := getenv(env)
		if value == "" {
			continue
		}
		creds[role] = &SigningCapability{role: role, material: []byte(value)}
	}

	for _, role := range requiredRoles {
		if _, ok := creds[role]; !ok {
			return nil, types.NewCredentialMissingError(string(role))
		}
	}

	return &Vault{creds: creds}, nil
}

// Get returns the capability for a role, or CredentialMissing.
func (v *Vault) Get(role Role) (*SigningCapability, error) {
	cap, ok := v.creds[role]
	if !ok {
		return nil, types.NewCredentialMissingError(string(role))
	}
	return cap, nil
}

// Has reports whether a role is configured.
func (v *Vault) Has(role Role) bool {
	_, ok := v.creds[role]
	return ok
}

// Zeroize clears all credential material. Call on shutdown.
func (v *Vault) Zeroize() {
	for _, cap := range v.creds {
		cap.Zeroize()
	}
}
