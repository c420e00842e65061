package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// ListRepository handles list persistence. Every query is keyed by the owner.
type ListRepository struct {
	db *sql.DB
}

// NewListRepository creates a new ListRepository.
func NewListRepository(db *sql.DB) *ListRepository {
	return &ListRepository{db: db}
}

const listColumns = `id, user_id, title, created_at`

// Create inserts a list and sets its generated ID and creation time.
func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	id := uuid.NewString()
	createdAt := now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lists (`+listColumns+`) VALUES (?, ?, ?, ?)`,
		id, list.UserID, list.Title, toMillis(createdAt),
	)
	if err != nil {
		return err
	}

	list.ID = id
	list.CreatedAt = createdAt
	return nil
}

// ListByUser returns all lists owned by userID, oldest first.
func (r *ListRepository) ListByUser(ctx context.Context, userID string) ([]model.List, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE user_id = ? ORDER BY created_at, id`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []model.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, *l)
	}

	return lists, rows.Err()
}

// Get retrieves the list with id owned by userID.
func (r *ListRepository) Get(ctx context.Context, userID, id string) (*model.List, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listColumns+` FROM lists WHERE id = ? AND user_id = ?`, id, userID,
	)
	l, err := scanList(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// Update applies patch to the list with id owned by userID and returns the result.
func (r *ListRepository) Update(ctx context.Context, userID, id string, patch model.ListPatch) (*model.List, error) {
	if _, err := r.Get(ctx, userID, id); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		if _, err := r.db.ExecContext(ctx,
			`UPDATE lists SET title = ? WHERE id = ? AND user_id = ?`, *patch.Title, id, userID,
		); err != nil {
			return nil, err
		}
	}

	return r.Get(ctx, userID, id)
}

// Delete removes the list with id owned by userID and returns what was removed.
func (r *ListRepository) Delete(ctx context.Context, userID, id string) (*model.List, error) {
	l, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM lists WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, err
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, repository.ErrNotFound
	}

	return l, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (*model.List, error) {
	var (
		l         model.List
		createdAt int64
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.Title, &createdAt); err != nil {
		return nil, err
	}
	l.CreatedAt = fromMillis(createdAt)
	return &l, nil
}
