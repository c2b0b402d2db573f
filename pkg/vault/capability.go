package vault

import (
	"crypto/sha256"
	"encoding/hex"
)

// SigningCapability is an opaque handle over a credential. It is only
// handed out by the vault and is only consumed by the process driver from
// inside an admitted transition. The material never appears in logs,
// JSON, or fmt output; rendering into a node artifact goes through
// EnvLine, which is the single deliberate escape hatch.
type SigningCapability struct {
	role     Role
	material []byte
}

// Role returns the credential role this capability authorizes.
func (c *SigningCapability) Role() Role {
	return c.role
}

// Fingerprint returns a short, log-safe digest of the credential.
func (c *SigningCapability) Fingerprint() string {
	sum := sha256.Sum256(c.material)
	return hex.EncodeToString(sum[:4])
}

// EnvLine renders the credential as a KEY=value line for a node env
// artifact. For process driver use only.
func (c *SigningCapability) EnvLine(key string) string {
	return key + "=" + string(c.material) + "\n"
}

// String redacts the credential.
func (c *SigningCapability) String() string {
	return "signing-capability(role=" + string(c.role) + " fp=" + c.Fingerprint() + ")"
}

// GoString redacts the credential under %#v.
func (c *SigningCapability) GoString() string {
	return c.String()
}

// MarshalJSON redacts the credential.
func (c *SigningCapability) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// Zeroize clears the credential material from memory.
func (c *SigningCapability) Zeroize() {
	for i := range c.material {
		c.material[i] = 0
	}
}
