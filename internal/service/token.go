package service

import (
	"fmt"
	"time"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/model"
)

// TokenService mints and verifies access tokens and mints refresh tokens.
//
// Access tokens are JWTs signed with a key derived from the server signing
// key and the user's secret salt. The key is derived on every call, so
// rotating the server key takes effect immediately.
type TokenService struct {
	signingKey []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a new TokenService.
func NewTokenService(signingKey string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		signingKey: []byte(signingKey),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithClock returns a copy of the service that reads the time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}

// IssueAccessToken returns a signed access token for user and its expiry.
func (s *TokenService) IssueAccessToken(user *model.User) (string, time.Time, error) {
	key, err := s.userKey(user)
	if err != nil {
		return "", time.Time{}, err
	}

	issuedAt := s.now()
	expiresAt := issuedAt.Add(s.accessTTL)

	token, err := crypto.GenerateToken(user.ID, key, issuedAt, expiresAt)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing access token: %w", err)
	}
	return token, expiresAt, nil
}

// VerifyAccessToken checks token against user's key and returns the user id it
// carries. It fails with crypto.ErrTokenExpired or crypto.ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(token string, user *model.User) (string, error) {
	key, err := s.userKey(user)
	if err != nil {
		return "", err
	}

	claims, err := crypto.ValidateToken(token, key, s.now)
	if err != nil {
		return "", err
	}
	if claims.UserID != user.ID {
		return "", crypto.ErrInvalidToken
	}
	return claims.UserID, nil
}

// IssueRefreshToken returns a new opaque refresh token and its expiry.
func (s *TokenService) IssueRefreshToken() (string, time.Time, error) {
	token, err := crypto.NewRefreshToken()
	if err != nil {
		return "", time.Time{}, err
	}
	return token, s.now().Add(s.refreshTTL), nil
}

// HasExpired reports whether expiresAt is not in the future.
func (s *TokenService) HasExpired(expiresAt time.Time) bool {
	return !s.now().Before(expiresAt)
}

func (s *TokenService) userKey(user *model.User) ([]byte, error) {
	return crypto.DeriveUserKey(s.signingKey, user.SecretSalt)
}
