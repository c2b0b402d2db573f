package vault

import (
	"regexp"
	"strings"
)

// Credential shape detection. The dispatcher runs these checks over public
// job arguments before any state lookup; the patterns live here so the
// vault remains the single owner of what counts as credential material.

var secretKeyName = regexp.MustCompile(`(?i)(private.?key|secret|seed|mnemonic|passphrase|password|credential|keystore|access.?key|api.?key)`)

var hexKeyValue = regexp.MustCompile(`^(0x)?[0-9a-fA-F]{64}$`)

var mnemonicWord = regexp.MustCompile(`^[a-z]{3,12}$`)

// KeyNameLooksSecret reports whether an argument name matches a
// credential naming pattern.
func KeyNameLooksSecret(name string) bool {
	return secretKeyName.MatchString(name)
}

// ValueLooksSecret reports whether an argument value is shaped like
// credential material: a 32-byte hex private key or a BIP-39 style
// seed phrase.
func ValueLooksSecret(value string) bool {
	v := strings.TrimSpace(value)
	if hexKeyValue.MatchString(v) {
		return true
	}
	return looksLikeMnemonic(v)
}

func looksLikeMnemonic(v string) bool {
	words := strings.Fields(v)
	switch len(words) {
	case 12, 15, 18, 21, 24:
	default:
		return false
	}
	for _, w := range words {
		if !mnemonicWord.MatchString(w) {
			return false
		}
	}
	return true
}
