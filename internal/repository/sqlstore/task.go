package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// TaskRepository handles task persistence. Every query is keyed by the parent list.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, list_id, title, completed, created_at`

// Create inserts a task and sets its generated ID and creation time.
func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	id := uuid.NewString()
	createdAt := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?)`,
		id, task.ListID, task.Title, task.Completed, toMillis(createdAt),
	)
	if err != nil {
		return err
	}

	task.ID = id
	task.CreatedAt = createdAt
	return nil
}

// ListByList returns the tasks of listID, oldest first.
func (r *TaskRepository) ListByList(ctx context.Context, listID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE list_id = ? ORDER BY created_at, id`, listID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}

	return tasks, rows.Err()
}

// Get retrieves the task with id inside listID.
func (r *TaskRepository) Get(ctx context.Context, listID, id string) (*model.Task, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND list_id = ?`, id, listID,
	)
	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

// Update applies patch to the task and returns the result.
func (r *TaskRepository) Update(ctx context.Context, listID, id string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := r.Get(ctx, listID, id); err != nil {
		return nil, err
	}

	if !patch.Empty() {
		var (
			sets []string
			args []any
		)
		if patch.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *patch.Title)
		}
		if patch.Completed != nil {
			sets = append(sets, "completed = ?")
			args = append(args, *patch.Completed)
		}
		args = append(args, id, listID)

		query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND list_id = ?`
		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return nil, err
		}
	}

	return r.Get(ctx, listID, id)
}

// Delete removes the task and returns what was removed.
func (r *TaskRepository) Delete(ctx context.Context, listID, id string) (*model.Task, error) {
	t, err := r.Get(ctx, listID, id)
	if err != nil {
		return nil, err
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND list_id = ?`, id, listID); err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteByList removes every task of listID and reports how many were removed.
func (r *TaskRepository) DeleteByList(ctx context.Context, listID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE list_id = ?`, listID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t         model.Task
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.ListID, &t.Title, &t.Completed, &createdAt); err != nil {
		return nil, err
	}
	t.CreatedAt = fromMillis(createdAt)
	return &t, nil
}
