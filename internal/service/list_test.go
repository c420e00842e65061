package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmanager/taskmanager-go/internal/model"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func TestCreateList_TitleRequired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.lists.CreateList(ctx, "owner", model.ListRequest{})
	require.ErrorIs(t, err, ErrTitleRequired)
	require.ErrorIs(t, err, ErrValidation)

	_, err = env.lists.CreateList(ctx, "owner", model.ListRequest{Title: strPtr("   ")})
	require.ErrorIs(t, err, ErrTitleRequired)
}

func TestLists_ScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mine, err := env.lists.CreateList(ctx, "alice", model.ListRequest{Title: strPtr("Groceries")})
	require.NoError(t, err)
	assert.Equal(t, "alice", mine.UserID)

	_, err = env.lists.CreateList(ctx, "bob", model.ListRequest{Title: strPtr("Chores")})
	require.NoError(t, err)

	lists, err := env.lists.ListLists(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, "Groceries", lists[0].Title)

	_, err = env.lists.GetList(ctx, "bob", mine.ID)
	require.ErrorIs(t, err, ErrListNotFound)

	empty, err := env.lists.ListLists(ctx, "nobody")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestUpdateList_ForeignListUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.lists.CreateList(ctx, "alice", model.ListRequest{Title: strPtr("Groceries")})
	require.NoError(t, err)

	_, err = env.lists.UpdateList(ctx, "mallory", list.ID, model.ListRequest{Title: strPtr("Pwned")})
	require.ErrorIs(t, err, ErrListNotFound)

	got, err := env.lists.GetList(ctx, "alice", list.ID)
	require.NoError(t, err)
	assert.Equal(t, "Groceries", got.Title)

	updated, err := env.lists.UpdateList(ctx, "alice", list.ID, model.ListRequest{Title: strPtr("Food")})
	require.NoError(t, err)
	assert.Equal(t, "Food", updated.Title)
	assert.Equal(t, "alice", updated.UserID)
}

func TestDeleteList_ForeignListUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.lists.CreateList(ctx, "alice", model.ListRequest{Title: strPtr("Groceries")})
	require.NoError(t, err)
	_, err = env.tasks.CreateTask(ctx, "alice", list.ID, model.TaskRequest{Title: strPtr("Milk")})
	require.NoError(t, err)

	_, err = env.lists.DeleteList(ctx, "mallory", list.ID)
	require.ErrorIs(t, err, ErrListNotFound)

	_, err = env.lists.GetList(ctx, "alice", list.ID)
	require.NoError(t, err)
	tasks, err := env.tasks.ListTasks(ctx, "alice", list.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestDeleteList_CascadesTasks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.lists.CreateList(ctx, "alice", model.ListRequest{Title: strPtr("Groceries")})
	require.NoError(t, err)
	for _, title := range []string{"Milk", "Eggs"} {
		_, err := env.tasks.CreateTask(ctx, "alice", list.ID, model.TaskRequest{Title: strPtr(title)})
		require.NoError(t, err)
	}

	res, err := env.lists.DeleteList(ctx, "alice", list.ID)
	require.NoError(t, err)
	assert.Equal(t, list.ID, res.List.ID)
	assert.Equal(t, int64(2), res.TasksDeleted)

	_, err = env.lists.GetList(ctx, "alice", list.ID)
	require.ErrorIs(t, err, ErrListNotFound)
}
