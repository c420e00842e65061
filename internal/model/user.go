package model

import (
	"strings"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
)

// User represents an account together with its refresh-token sessions.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	SecretSalt   string
	Sessions     []Session
	CreatedAt    time.Time
}

// Session binds an opaque refresh token to its absolute expiry.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// SetPassword hashes password and replaces the stored hash.
// It is the only place where a plaintext password turns into stored material.
func (u *User) SetPassword(password string) error {
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// Session returns the session holding token, if any.
func (u *User) Session(token string) (Session, bool) {
	for _, s := range u.Sessions {
		if s.Token == token {
			return s, true
		}
	}
	return Session{}, false
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignupRequest represents a user registration request.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult carries the user and the token pair minted on signup or login.
type AuthResult struct {
	User             UserResponse
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        string    `json:"_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AccessTokenResponse is returned when a refresh session mints a new access token.
type AccessTokenResponse struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// NewUserResponse strips a user down to its public fields.
func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
