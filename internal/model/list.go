package model

import "time"

// List is a named collection of tasks owned by exactly one user.
type List struct {
	ID        string
	Title     string
	UserID    string
	CreatedAt time.Time
}

// ListPatch holds the fields of a list that may change after creation.
// A nil field is left untouched.
type ListPatch struct {
	Title *string
}

// ListRequest represents a create or update request for a list.
type ListRequest struct {
	Title *string `json:"title"`
}

// ListResponse represents a list in API responses.
type ListResponse struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	UserID    string    `json:"_userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeleteListResponse reports a removed list and how many of its tasks went with it.
type DeleteListResponse struct {
	List         ListResponse `json:"list"`
	TasksDeleted int64        `json:"tasksDeleted"`
}

// NewListResponse converts a list for API output.
func NewListResponse(l *List) ListResponse {
	return ListResponse{
		ID:        l.ID,
		Title:     l.Title,
		UserID:    l.UserID,
		CreatedAt: l.CreatedAt,
	}
}
