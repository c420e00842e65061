package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository"
)

// UserRepository handles user and session persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, password_hash, secret_salt, created_at`

// Create inserts a new user with any sessions it already carries and sets
// the generated ID and creation time on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	id := uuid.NewString()
	createdAt := now()

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
			id, user.Email, user.PasswordHash, user.SecretSalt, toMillis(createdAt),
		)
		if err != nil {
			return err
		}

		for i, s := range user.Sessions {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sessions (token, user_id, expires_at, created_at, seq) VALUES (?, ?, ?, ?, ?)`,
				s.Token, id, toMillis(s.ExpiresAt), toMillis(createdAt), i+1,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEmail
		}
		return err
	}

	user.ID = id
	user.CreatedAt = createdAt
	return nil
}

// GetByEmail retrieves a user by email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// FindByIDAndRefreshToken returns the user only when one of its sessions holds token.
func (r *UserRepository) FindByIDAndRefreshToken(ctx context.Context, id, token string) (*model.User, error) {
	query := `SELECT u.id, u.email, u.password_hash, u.secret_salt, u.created_at
		FROM users u JOIN sessions s ON s.user_id = u.id
		WHERE u.id = ? AND s.token = ?`
	return r.getOne(ctx, query, id, token)
}

// AddSession appends a session to the user's session set. seq numbers a
// user's sessions so logins within the same millisecond keep their order.
func (r *UserRepository) AddSession(ctx context.Context, userID string, session model.Session) error {
	query := `INSERT INTO sessions (token, user_id, expires_at, created_at, seq)
		SELECT ?, u.id, ?, ?, (SELECT COALESCE(MAX(s.seq), 0) + 1 FROM sessions s WHERE s.user_id = u.id)
		FROM users u WHERE u.id = ?`

	result, err := r.db.ExecContext(ctx, query,
		session.Token, toMillis(session.ExpiresAt), toMillis(now()), userID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// RemoveSession deletes the session holding token.
func (r *UserRepository) RemoveSession(ctx context.Context, userID, token string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND token = ?`, userID, token,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.SecretSalt, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)

	sessions, err := r.sessions(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Sessions = sessions

	return &user, nil
}

func (r *UserRepository) sessions(ctx context.Context, userID string) ([]model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT token, expires_at FROM sessions WHERE user_id = ? ORDER BY created_at, seq, token`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var (
			s         model.Session
			expiresAt int64
		)
		if err := rows.Scan(&s.Token, &expiresAt); err != nil {
			return nil, err
		}
		s.ExpiresAt = fromMillis(expiresAt)
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
