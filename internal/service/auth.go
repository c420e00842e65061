package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("user not found. make sure that the refresh token and user id are correct")
	ErrSessionExpired     = errors.New("refresh token has expired or the session is invalid")
)

// UserStore persists users and their refresh-token sessions.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	AddSession(ctx context.Context, userID string, session model.Session) error
	RemoveSession(ctx context.Context, userID, token string) error
	FindByIDAndRefreshToken(ctx context.Context, userID, token string) (*model.User, error)
}

// AuthService handles signup, login and the session lifecycle.
type AuthService struct {
	users    UserStore
	tokens   *TokenService
	validate *validator.Validate

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, tokens *TokenService) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		validate: newValidator(),
	}
}

// Signup creates an account and opens its first session.
func (s *AuthService) Signup(ctx context.Context, req model.SignupRequest) (model.AuthResult, error) {
	req.Email = model.NormalizeEmail(req.Email)
	if err := validateStruct(s.validate, req); err != nil {
		return model.AuthResult{}, err
	}

	salt, err := crypto.NewSecretSalt()
	if err != nil {
		return model.AuthResult{}, err
	}

	user := &model.User{Email: req.Email, SecretSalt: salt}
	if err := user.SetPassword(req.Password); err != nil {
		return model.AuthResult{}, fmt.Errorf("hashing password: %w", err)
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResult{}, ErrEmailTaken
		}
		return model.AuthResult{}, fmt.Errorf("creating user: %w", err)
	}

	return s.startSession(ctx, user)
}

// Login checks credentials and opens a new session.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResult, error) {
	user, err := s.FindByCredentials(ctx, req.Email, req.Password)
	if err != nil {
		return model.AuthResult{}, err
	}
	return s.startSession(ctx, user)
}

// FindByCredentials returns the user owning email when password matches.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials, and
// both pay for one argon2 verification.
func (s *AuthService) FindByCredentials(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_, _ = crypto.VerifyPassword(password, s.dummy())
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := crypto.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Authenticate resolves an access token to the id of the user it was issued to.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (string, error) {
	userID, err := crypto.PeekUserID(accessToken)
	if err != nil {
		return "", err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", crypto.ErrInvalidToken
		}
		return "", err
	}

	return s.tokens.VerifyAccessToken(accessToken, user)
}

// ResolveSession finds the user holding refreshToken and checks that the
// session has not expired. A found session is not enough on its own.
func (s *AuthService) ResolveSession(ctx context.Context, userID, refreshToken string) (*model.User, model.Session, error) {
	if userID == "" || refreshToken == "" {
		return nil, model.Session{}, ErrSessionNotFound
	}

	user, err := s.users.FindByIDAndRefreshToken(ctx, userID, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, model.Session{}, ErrSessionNotFound
		}
		return nil, model.Session{}, err
	}

	session, ok := user.Session(refreshToken)
	if !ok {
		return nil, model.Session{}, ErrSessionNotFound
	}
	if s.tokens.HasExpired(session.ExpiresAt) {
		return nil, model.Session{}, ErrSessionExpired
	}

	return user, session, nil
}

// RefreshAccessToken mints a new access token for a user resolved through a valid session.
func (s *AuthService) RefreshAccessToken(user *model.User) (model.AccessTokenResponse, error) {
	token, expiresAt, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return model.AccessTokenResponse{}, err
	}
	return model.AccessTokenResponse{AccessToken: token, ExpiresAt: expiresAt}, nil
}

// Logout ends the session holding refreshToken.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	err := s.users.RemoveSession(ctx, userID, refreshToken)
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUserNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID string) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.UserResponse{}, ErrUserNotFound
		}
		return model.UserResponse{}, err
	}
	return model.NewUserResponse(user), nil
}

// startSession records a refresh session before minting the access token;
// the refresh token is worthless until its session row exists.
func (s *AuthService) startSession(ctx context.Context, user *model.User) (model.AuthResult, error) {
	refreshToken, refreshExpiresAt, err := s.tokens.IssueRefreshToken()
	if err != nil {
		return model.AuthResult{}, err
	}

	session := model.Session{Token: refreshToken, ExpiresAt: refreshExpiresAt.UTC().Truncate(time.Millisecond)}
	if err := s.users.AddSession(ctx, user.ID, session); err != nil {
		return model.AuthResult{}, fmt.Errorf("recording session: %w", err)
	}
	user.Sessions = append(user.Sessions, session)

	accessToken, accessExpiresAt, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{
		User:             model.NewUserResponse(user),
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = crypto.HashPassword("timing-equalizer")
	})
	return s.dummyHash
}
