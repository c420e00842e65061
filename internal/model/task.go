package model

import "time"

// Task is an item inside a list.
type Task struct {
	ID        string
	Title     string
	ListID    string
	Completed bool
	CreatedAt time.Time
}

// TaskPatch holds the mutable fields of a task. A nil field is left untouched.
type TaskPatch struct {
	Title     *string
	Completed *bool
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// TaskRequest represents a create or update request for a task.
type TaskRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID        string    `json:"_id"`
	Title     string    `json:"title"`
	ListID    string    `json:"_listId"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTaskResponse converts a task for API output.
func NewTaskResponse(t *Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Title:     t.Title,
		ListID:    t.ListID,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
	}
}
