package crypto

import (
	"bytes"
	"testing"
	"time"
)

func TestDeriveUserKeyDeterministic(t *testing.T) {
	a, err := DeriveUserKey([]byte("server"), "salt-a")
	if err != nil {
		t.Fatalf("DeriveUserKey() unexpected error: %v", err)
	}
	b, err := DeriveUserKey([]byte("server"), "salt-a")
	if err != nil {
		t.Fatalf("DeriveUserKey() unexpected error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("DeriveUserKey() is not deterministic")
	}
	if len(a) != userKeyLength {
		t.Errorf("DeriveUserKey() length = %d, want %d", len(a), userKeyLength)
	}
}

func TestDeriveUserKeyDiffers(t *testing.T) {
	tests := []struct {
		name      string
		serverKey string
		salt      string
	}{
		{name: "different salt", serverKey: "server", salt: "salt-b"},
		{name: "different server key", serverKey: "rotated", salt: "salt-a"},
	}

	base, err := DeriveUserKey([]byte("server"), "salt-a")
	if err != nil {
		t.Fatalf("DeriveUserKey() unexpected error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := DeriveUserKey([]byte(tt.serverKey), tt.salt)
			if err != nil {
				t.Fatalf("DeriveUserKey() unexpected error: %v", err)
			}
			if bytes.Equal(base, key) {
				t.Error("DeriveUserKey() produced the same key")
			}
		})
	}
}

func TestTokenFromOneUserFailsForAnother(t *testing.T) {
	keyA, _ := DeriveUserKey([]byte("server"), "salt-a")
	keyB, _ := DeriveUserKey([]byte("server"), "salt-b")

	now := time.Now()
	token, err := GenerateToken("user-a", keyA, now, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("GenerateToken() unexpected error: %v", err)
	}

	if _, err := ValidateToken(token, keyB, nil); err != ErrInvalidToken {
		t.Errorf("ValidateToken() error = %v, want %v", err, ErrInvalidToken)
	}
}
