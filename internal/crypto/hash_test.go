package crypto

import (
	"strings"
	"testing"
)

func fastParams() HashParams {
	return HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestHashPasswordFormat(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("HashPassword() unexpected error: %v", err)
	}

	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		t.Fatalf("HashPassword() expected 6 parts, got %d: %q", len(parts), hash)
	}
	if parts[1] != "argon2id" {
		t.Errorf("algorithm = %q, want %q", parts[1], "argon2id")
	}
	if parts[3] != "m=65536,t=3,p=2" {
		t.Errorf("params = %q, want %q", parts[3], "m=65536,t=3,p=2")
	}
	if strings.Contains(hash, "secret123") {
		t.Error("hash contains the plaintext password")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPasswordWithParams("correct-password", fastParams())
	if err != nil {
		t.Fatalf("HashPasswordWithParams() unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "correct", password: "correct-password", want: true},
		{name: "wrong", password: "wrong-password", want: false},
		{name: "empty", password: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, err := VerifyPassword(tt.password, hash)
			if err != nil {
				t.Fatalf("VerifyPassword() unexpected error: %v", err)
			}
			if match != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", match, tt.want)
			}
		})
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	hash1, err := HashPasswordWithParams("same-password", fastParams())
	if err != nil {
		t.Fatalf("HashPasswordWithParams() unexpected error: %v", err)
	}
	hash2, err := HashPasswordWithParams("same-password", fastParams())
	if err != nil {
		t.Fatalf("HashPasswordWithParams() unexpected error: %v", err)
	}
	if hash1 == hash2 {
		t.Error("identical hashes for the same password (salt should differ)")
	}
}

func TestVerifyPasswordInvalidHash(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want error
	}{
		{name: "garbage", hash: "invalid-hash-format", want: ErrInvalidHashFormat},
		{name: "wrong algorithm", hash: "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", want: ErrInvalidHashFormat},
		{name: "wrong version", hash: "$argon2id$v=16$m=1,t=1,p=1$c2FsdA$aGFzaA", want: ErrIncompatibleVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := VerifyPassword("password", tt.hash); err != tt.want {
				t.Errorf("VerifyPassword() error = %v, want %v", err, tt.want)
			}
		})
	}
}
