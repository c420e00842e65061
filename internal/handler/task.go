package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// TaskHandler handles HTTP requests for the tasks of a list.
type TaskHandler struct {
	service *service.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{service: svc}
}

// HandleListTasks handles GET /lists/{listId}/tasks requests.
func (h *TaskHandler) HandleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	tasks, err := h.service.ListTasks(r.Context(), userID, chi.URLParam(r, "listId"))
	if err != nil {
		h.writeError(w, r, "list tasks", err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// HandleGetTask handles GET /lists/{listId}/tasks/{taskId} requests.
func (h *TaskHandler) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	task, err := h.service.GetTask(r.Context(), userID, chi.URLParam(r, "listId"), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeError(w, r, "get task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleCreateTask handles POST /lists/{listId}/tasks requests.
func (h *TaskHandler) HandleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.service.CreateTask(r.Context(), userID, chi.URLParam(r, "listId"), req)
	if err != nil {
		h.writeError(w, r, "create task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleUpdateTask handles PATCH /lists/{listId}/tasks/{taskId} requests.
func (h *TaskHandler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	var req model.TaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.service.UpdateTask(r.Context(), userID, chi.URLParam(r, "listId"), chi.URLParam(r, "taskId"), req)
	if err != nil {
		h.writeError(w, r, "update task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// HandleDeleteTask handles DELETE /lists/{listId}/tasks/{taskId} requests.
func (h *TaskHandler) HandleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	task, err := h.service.DeleteTask(r.Context(), userID, chi.URLParam(r, "listId"), chi.URLParam(r, "taskId"))
	if err != nil {
		h.writeError(w, r, "delete task", err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrTaskNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
	default:
		internalError(w, r, op, err)
	}
}
