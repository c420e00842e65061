package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskmanager/taskmanager-go/internal/repository/sqlstore"
)

const testSigningKey = "test-signing-key-0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	auth  *AuthService
	lists *ListService
	tasks *TaskService
	users *sqlstore.UserRepository
	clock *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	clock := newFakeClock()
	tokens := NewTokenService(testSigningKey, 15*time.Minute, 240*time.Hour).WithClock(clock.Now)

	users := sqlstore.NewUserRepository(db)
	lists := sqlstore.NewListRepository(db)
	tasks := sqlstore.NewTaskRepository(db)

	return &testEnv{
		auth:  NewAuthService(users, tokens),
		lists: NewListService(lists, tasks),
		tasks: NewTaskService(lists, tasks),
		users: users,
		clock: clock,
	}
}
