package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	RefreshTokenBytes = 64
	SecretSaltBytes   = 32
)

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NewRefreshToken returns a fresh opaque refresh token.
func NewRefreshToken() (string, error) {
	return RandomHex(RefreshTokenBytes)
}

// NewSecretSalt returns a fresh per-user salt for DeriveUserKey.
func NewSecretSalt() (string, error) {
	return RandomHex(SecretSaltBytes)
}
