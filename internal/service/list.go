package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var (
	ErrListNotFound  = errors.New("list not found")
	ErrTitleRequired = fmt.Errorf("%w: title is required", ErrValidation)
)

// ListStore persists lists. Every call except Create is keyed by owner.
type ListStore interface {
	Create(ctx context.Context, list *model.List) error
	ListByUser(ctx context.Context, userID string) ([]model.List, error)
	Get(ctx context.Context, userID, id string) (*model.List, error)
	Update(ctx context.Context, userID, id string, patch model.ListPatch) (*model.List, error)
	Delete(ctx context.Context, userID, id string) (*model.List, error)
}

// TaskStore persists tasks. Every call is keyed by the parent list.
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	ListByList(ctx context.Context, listID string) ([]model.Task, error)
	Get(ctx context.Context, listID, id string) (*model.Task, error)
	Update(ctx context.Context, listID, id string, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, listID, id string) (*model.Task, error)
	DeleteByList(ctx context.Context, listID string) (int64, error)
}

// ListService handles list business logic scoped to the calling user.
type ListService struct {
	lists ListStore
	tasks TaskStore
}

// NewListService creates a new ListService.
func NewListService(lists ListStore, tasks TaskStore) *ListService {
	return &ListService{lists: lists, tasks: tasks}
}

// ListLists returns every list owned by userID.
func (s *ListService) ListLists(ctx context.Context, userID string) ([]model.ListResponse, error) {
	lists, err := s.lists.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]model.ListResponse, 0, len(lists))
	for i := range lists {
		result = append(result, model.NewListResponse(&lists[i]))
	}
	return result, nil
}

// GetList returns a single list owned by userID.
func (s *ListService) GetList(ctx context.Context, userID, id string) (model.ListResponse, error) {
	list, err := s.lists.Get(ctx, userID, id)
	if err != nil {
		return model.ListResponse{}, listError(err)
	}
	return model.NewListResponse(list), nil
}

// CreateList creates a list owned by userID.
func (s *ListService) CreateList(ctx context.Context, userID string, req model.ListRequest) (model.ListResponse, error) {
	title, err := requireTitle(req.Title)
	if err != nil {
		return model.ListResponse{}, err
	}

	list := &model.List{Title: title, UserID: userID}
	if err := s.lists.Create(ctx, list); err != nil {
		return model.ListResponse{}, err
	}
	return model.NewListResponse(list), nil
}

// UpdateList applies a partial update to a list owned by userID.
func (s *ListService) UpdateList(ctx context.Context, userID, id string, req model.ListRequest) (model.ListResponse, error) {
	var patch model.ListPatch
	if req.Title != nil {
		title, err := requireTitle(req.Title)
		if err != nil {
			return model.ListResponse{}, err
		}
		patch.Title = &title
	}

	list, err := s.lists.Update(ctx, userID, id, patch)
	if err != nil {
		return model.ListResponse{}, listError(err)
	}
	return model.NewListResponse(list), nil
}

// DeleteList removes a list owned by userID together with its tasks.
// Tasks go first; if that fails the list is kept.
func (s *ListService) DeleteList(ctx context.Context, userID, id string) (model.DeleteListResponse, error) {
	list, err := s.lists.Get(ctx, userID, id)
	if err != nil {
		return model.DeleteListResponse{}, listError(err)
	}

	removed, err := s.tasks.DeleteByList(ctx, list.ID)
	if err != nil {
		return model.DeleteListResponse{}, fmt.Errorf("deleting tasks of list %s: %w", list.ID, err)
	}

	deleted, err := s.lists.Delete(ctx, userID, list.ID)
	if err != nil {
		return model.DeleteListResponse{}, listError(err)
	}

	return model.DeleteListResponse{
		List:         model.NewListResponse(deleted),
		TasksDeleted: removed,
	}, nil
}

func listError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrListNotFound
	}
	return err
}

func requireTitle(title *string) (string, error) {
	if title == nil {
		return "", ErrTitleRequired
	}
	t := strings.TrimSpace(*title)
	if t == "" {
		return "", ErrTitleRequired
	}
	return t, nil
}
