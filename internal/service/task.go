package service

import (
	"context"
	"errors"

	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

var ErrTaskNotFound = errors.New("task not found")

// TaskService handles task business logic. Every operation first resolves
// the parent list as owned by the caller; a foreign or missing list reads as
// a missing task.
type TaskService struct {
	lists ListStore
	tasks TaskStore
}

// NewTaskService creates a new TaskService.
func NewTaskService(lists ListStore, tasks TaskStore) *TaskService {
	return &TaskService{lists: lists, tasks: tasks}
}

// ListTasks returns the tasks of a list owned by userID.
func (s *TaskService) ListTasks(ctx context.Context, userID, listID string) ([]model.TaskResponse, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}

	tasks, err := s.tasks.ListByList(ctx, list.ID)
	if err != nil {
		return nil, err
	}

	result := make([]model.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, model.NewTaskResponse(&tasks[i]))
	}
	return result, nil
}

// GetTask returns one task of a list owned by userID.
func (s *TaskService) GetTask(ctx context.Context, userID, listID, id string) (model.TaskResponse, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task, err := s.tasks.Get(ctx, list.ID, id)
	if err != nil {
		return model.TaskResponse{}, taskError(err)
	}
	return model.NewTaskResponse(task), nil
}

// CreateTask adds a task to a list owned by userID.
func (s *TaskService) CreateTask(ctx context.Context, userID, listID string, req model.TaskRequest) (model.TaskResponse, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	title, err := requireTitle(req.Title)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task := &model.Task{Title: title, ListID: list.ID}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return model.TaskResponse{}, err
	}
	return model.NewTaskResponse(task), nil
}

// UpdateTask applies a partial update to a task of a list owned by userID.
func (s *TaskService) UpdateTask(ctx context.Context, userID, listID, id string, req model.TaskRequest) (model.TaskResponse, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	patch := model.TaskPatch{Completed: req.Completed}
	if req.Title != nil {
		title, err := requireTitle(req.Title)
		if err != nil {
			return model.TaskResponse{}, err
		}
		patch.Title = &title
	}

	task, err := s.tasks.Update(ctx, list.ID, id, patch)
	if err != nil {
		return model.TaskResponse{}, taskError(err)
	}
	return model.NewTaskResponse(task), nil
}

// DeleteTask removes a task of a list owned by userID and returns it.
func (s *TaskService) DeleteTask(ctx context.Context, userID, listID, id string) (model.TaskResponse, error) {
	list, err := s.ownedList(ctx, userID, listID)
	if err != nil {
		return model.TaskResponse{}, err
	}

	task, err := s.tasks.Delete(ctx, list.ID, id)
	if err != nil {
		return model.TaskResponse{}, taskError(err)
	}
	return model.NewTaskResponse(task), nil
}

func (s *TaskService) ownedList(ctx context.Context, userID, listID string) (*model.List, error) {
	list, err := s.lists.Get(ctx, userID, listID)
	if err != nil {
		return nil, taskError(err)
	}
	return list, nil
}

func taskError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
