package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taskmanager/taskmanager-go/internal/crypto"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// Header names carrying credentials. Browsers read them through CORS exposure.
const (
	AccessTokenHeader  = "x-access-token"
	RefreshTokenHeader = "x-refresh-token"
	UserIDHeader       = "_id"
)

type contextKey string

const (
	userIDKey       contextKey = "userID"
	userKey         contextKey = "user"
	refreshTokenKey contextKey = "refreshToken"
)

// Authenticator resolves an access token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (string, error)
}

// SessionResolver resolves a user id and refresh token to a live session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID, refreshToken string) (*model.User, model.Session, error)
}

// AccessToken returns middleware that admits requests carrying a valid
// x-access-token and stores the caller's user id in the request context.
func AccessToken(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(AccessTokenHeader)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "missing access token")
				return
			}

			userID, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, crypto.ErrTokenExpired), errors.Is(err, crypto.ErrInvalidToken):
					writeJSONError(w, http.StatusUnauthorized, err.Error())
				default:
					slog.Error("authenticating access token", "error", err, "request_id", chimw.GetReqID(r.Context()))
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RefreshSession returns middleware that admits requests whose _id and
// x-refresh-token headers name an unexpired session. The user and the
// refresh token are stored in the request context.
func RefreshSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			refreshToken := r.Header.Get(RefreshTokenHeader)
			userID := r.Header.Get(UserIDHeader)

			user, _, err := resolver.ResolveSession(r.Context(), userID, refreshToken)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionExpired):
					writeJSONError(w, http.StatusUnauthorized, err.Error())
				default:
					slog.Error("resolving session", "error", err, "request_id", chimw.GetReqID(r.Context()))
					writeJSONError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, user.ID)
			ctx = context.WithValue(ctx, userKey, user)
			ctx = context.WithValue(ctx, refreshTokenKey, refreshToken)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext extracts the authenticated user ID from the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// UserFromContext returns the user resolved by RefreshSession.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// RefreshTokenFromContext returns the refresh token checked by RefreshSession.
func RefreshTokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(refreshTokenKey).(string)
	return t, ok && t != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
