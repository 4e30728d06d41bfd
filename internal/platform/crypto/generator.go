// File: internal/platform/crypto/generator.go
package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// stateBytes is the entropy used for OAuth state values.
const stateBytes = 32

// GenerateSecureRandomString creates a URL-safe random string from n bytes of entropy.
func GenerateSecureRandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateState returns a value suitable for the OAuth state parameter.
func GenerateState() (string, error) {
	return GenerateSecureRandomString(stateBytes)
}
