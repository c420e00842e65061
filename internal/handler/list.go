package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// ListHandler handles HTTP requests for lists.
type ListHandler struct {
	service *service.ListService
}

// NewListHandler creates a new ListHandler.
func NewListHandler(svc *service.ListService) *ListHandler {
	return &ListHandler{service: svc}
}

// HandleListLists handles GET /lists requests.
func (h *ListHandler) HandleListLists(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	lists, err := h.service.ListLists(r.Context(), userID)
	if err != nil {
		internalError(w, r, "list lists", err)
		return
	}

	writeJSON(w, http.StatusOK, lists)
}

// HandleGetList handles GET /lists/{listId} requests.
func (h *ListHandler) HandleGetList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	list, err := h.service.GetList(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		h.writeError(w, r, "get list", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleCreateList handles POST /lists requests.
func (h *ListHandler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.ListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	list, err := h.service.CreateList(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, r, "create list", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleUpdateList handles PATCH /lists/{listId} requests.
func (h *ListHandler) HandleUpdateList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.ListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	list, err := h.service.UpdateList(r.Context(), userID, chi.URLParam(r, "listId"), req)
	if err != nil {
		h.writeError(w, r, "update list", err)
		return
	}

	writeJSON(w, http.StatusOK, list)
}

// HandleDeleteList handles DELETE /lists/{listId} requests.
func (h *ListHandler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	res, err := h.service.DeleteList(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		h.writeError(w, r, "delete list", err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *ListHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrListNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
	default:
		internalError(w, r, op, err)
	}
}
