package crypto

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	userKeyLength = 32
	userKeyInfo   = "taskmanager access token v1"
)

// DeriveUserKey mixes the server-wide signing key with a per-user salt into
// the HMAC key for that user's access tokens. Leaking one user's key reveals
// nothing about another's.
func DeriveUserKey(serverKey []byte, userSalt string) ([]byte, error) {
	r := hkdf.New(sha256.New, serverKey, []byte(userSalt), []byte(userKeyInfo))

	key := make([]byte, userKeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving user key: %w", err)
	}
	return key, nil
}
