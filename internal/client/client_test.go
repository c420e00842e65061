package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmanager/taskmanager-go/internal/handler"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/repository/sqlstore"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// fakeAPI accepts only the "fresh" access token on /lists and counts refreshes.
// Unless noBarrier is set, rejected /lists calls wait for each other so the
// callers hit the refresh together.
type fakeAPI struct {
	refreshes      atomic.Int32
	rejectRefresh  bool
	refreshDelay   time.Duration
	refreshStarted chan struct{}
	noBarrier      bool
	unauthorized   sync.WaitGroup
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/lists":
		if r.Header.Get(accessTokenHeader) != "fresh" {
			if !f.noBarrier {
				f.unauthorized.Done()
				f.unauthorized.Wait()
			}
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "access token has expired"})
			return
		}
		json.NewEncoder(w).Encode([]model.ListResponse{{ID: "l1", Title: "Groceries"}})

	case "/users/me/access-token":
		f.refreshes.Add(1)
		if f.refreshStarted != nil {
			select {
			case f.refreshStarted <- struct{}{}:
			default:
			}
		}
		if f.rejectRefresh || r.Header.Get(refreshTokenHeader) != "refresh-1" || r.Header.Get(userIDHeader) != "u1" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "refresh token has expired or the session is invalid"})
			return
		}
		delay := f.refreshDelay
		if delay == 0 {
			delay = 50 * time.Millisecond
		}
		time.Sleep(delay)
		w.Header().Set(accessTokenHeader, "fresh")
		json.NewEncoder(w).Encode(model.AccessTokenResponse{AccessToken: "fresh"})

	default:
		http.NotFound(w, r)
	}
}

func TestClient_ConcurrentRefreshCoalesced(t *testing.T) {
	const callers = 8

	api := &fakeAPI{}
	api.unauthorized.Add(callers)
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := New(srv.URL)
	c.SetCredentials("u1", "stale", "refresh-1")

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lists, err := c.Lists(context.Background())
			if err == nil && len(lists) != 1 {
				err = errors.New("unexpected lists")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), api.refreshes.Load())

	_, access, refresh := c.Credentials()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "refresh-1", refresh)
}

func TestClient_SharedRefreshOutlivesLeaderContext(t *testing.T) {
	api := &fakeAPI{
		noBarrier:      true,
		refreshDelay:   200 * time.Millisecond,
		refreshStarted: make(chan struct{}, 1),
	}
	srv := httptest.NewServer(api)
	defer srv.Close()

	c := New(srv.URL)
	c.SetCredentials("u1", "stale", "refresh-1")

	shortCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := c.Lists(shortCtx)
		shortErr <- err
	}()

	select {
	case <-api.refreshStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh never started")
	}

	lists, err := c.Lists(context.Background())
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	require.ErrorIs(t, <-shortErr, context.DeadlineExceeded)
	assert.Equal(t, int32(1), api.refreshes.Load())

	_, access, _ := c.Credentials()
	assert.Equal(t, "fresh", access)
}

func TestClient_RefreshTimeout(t *testing.T) {
	api := &fakeAPI{noBarrier: true, refreshDelay: 300 * time.Millisecond}
	srv := httptest.NewServer(api)
	defer srv.Close()

	var logouts atomic.Int32
	c := New(srv.URL, WithRefreshTimeout(50*time.Millisecond), WithLogoutHook(func() { logouts.Add(1) }))
	c.SetCredentials("u1", "stale", "refresh-1")

	_, err := c.Lists(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrSessionEnded)
	assert.Zero(t, logouts.Load())

	_, _, refresh := c.Credentials()
	assert.Equal(t, "refresh-1", refresh, "a transport failure keeps the session")
}

func TestClient_EscapesPathSegments(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.EscapedPath())
		mu.Unlock()
		if strings.HasSuffix(r.URL.Path, "/tasks") {
			w.Write([]byte("[]"))
			return
		}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetCredentials("u1", "tok", "refresh-1")
	ctx := context.Background()

	_, err := c.GetList(ctx, "a/b c")
	require.NoError(t, err)
	_, err = c.DeleteList(ctx, "../users")
	require.NoError(t, err)
	_, err = c.GetTask(ctx, "l/1", "t?2")
	require.NoError(t, err)
	_, err = c.Tasks(ctx, "l#1")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/lists/a%2Fb%20c",
		"/lists/..%2Fusers",
		"/lists/l%2F1/tasks/t%3F2",
		"/lists/l%231/tasks",
	}, paths)
}

func TestClient_RefreshFailureLogsOut(t *testing.T) {
	api := &fakeAPI{rejectRefresh: true}
	api.unauthorized.Add(1)
	srv := httptest.NewServer(api)
	defer srv.Close()

	var logouts atomic.Int32
	c := New(srv.URL, WithLogoutHook(func() { logouts.Add(1) }))
	c.SetCredentials("u1", "stale", "refresh-1")

	_, err := c.Lists(context.Background())
	require.ErrorIs(t, err, ErrSessionEnded)
	assert.Equal(t, int32(1), logouts.Load())

	userID, access, refresh := c.Credentials()
	assert.Empty(t, userID)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
}

func TestClient_NonAuthErrorsAreReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "list not found"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.SetCredentials("u1", "tok", "refresh-1")

	_, err := c.GetList(context.Background(), "missing")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "list not found", apiErr.Message)
}

func TestClient_AgainstServer(t *testing.T) {
	db, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var (
		mu  sync.Mutex
		now = time.Now()
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	tokens := service.NewTokenService("client-test-key", 15*time.Minute, 240*time.Hour).WithClock(clock)
	lists := sqlstore.NewListRepository(db)
	tasks := sqlstore.NewTaskRepository(db)

	srv := httptest.NewServer(handler.NewRouter(
		service.NewAuthService(sqlstore.NewUserRepository(db), tokens),
		service.NewListService(lists, tasks),
		service.NewTaskService(lists, tasks),
	))
	defer srv.Close()

	ctx := context.Background()
	c := New(srv.URL)

	user, err := c.Signup(ctx, "client@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", user.Email)

	list, err := c.CreateList(ctx, "Groceries")
	require.NoError(t, err)

	task, err := c.CreateTask(ctx, list.ID, "Milk")
	require.NoError(t, err)

	_, firstAccess, _ := c.Credentials()

	mu.Lock()
	now = now.Add(20 * time.Minute)
	mu.Unlock()

	done := true
	updated, err := c.UpdateTask(ctx, list.ID, task.ID, model.TaskRequest{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	_, secondAccess, _ := c.Credentials()
	assert.NotEqual(t, firstAccess, secondAccess)

	deleted, err := c.DeleteList(ctx, list.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted.TasksDeleted)

	require.NoError(t, c.Logout(ctx))
	_, _, refresh := c.Credentials()
	assert.Empty(t, refresh)
}
