package handler

import (
	"errors"
	"net/http"

	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// UserHandler handles HTTP requests for accounts and sessions.
type UserHandler struct {
	service *service.AuthService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.AuthService) *UserHandler {
	return &UserHandler{service: svc}
}

// HandleSignup handles POST /users requests.
func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req model.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Signup(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrEmailTaken):
			writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
		default:
			internalError(w, r, "signup", err)
		}
		return
	}

	writeSession(w, res)
}

// HandleLogin handles POST /users/login requests.
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		internalError(w, r, "login", err)
		return
	}

	writeSession(w, res)
}

// HandleMe handles GET /users/me requests.
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
			return
		}
		internalError(w, r, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleAccessToken handles GET /users/me/access-token requests. The
// refresh-session gate has already resolved the user.
func (h *UserHandler) HandleAccessToken(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.RefreshAccessToken(user)
	if err != nil {
		internalError(w, r, "refresh access token", err)
		return
	}

	w.Header().Set(middleware.AccessTokenHeader, resp.AccessToken)
	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /users/me/logout requests.
func (h *UserHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	token, hasToken := middleware.RefreshTokenFromContext(r.Context())
	if !ok || !hasToken {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	if err := h.service.Logout(r.Context(), user.ID, token); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			writeJSON(w, http.StatusUnauthorized, errorResponse(err.Error()))
			return
		}
		internalError(w, r, "logout", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeSession(w http.ResponseWriter, res model.AuthResult) {
	w.Header().Set(middleware.RefreshTokenHeader, res.RefreshToken)
	w.Header().Set(middleware.AccessTokenHeader, res.AccessToken)
	writeJSON(w, http.StatusOK, res.User)
}
