package storage

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/pintask/internal/client/models"
	"github.com/dmitrijs2005/pintask/internal/common"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore()
	err := s.Open(context.Background(), "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	_, err := s.Get(ctx, "missing")
	require.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Set(ctx, "k", []byte("v1")))
	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	// upsert
	require.NoError(t, s.Set(ctx, "k", []byte("v2")))
	v, err = s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	require.NoError(t, s.Remove(ctx, "k"))
	_, err = s.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrNotFound)

	// removing an absent key is fine
	require.NoError(t, s.Remove(ctx, "k"))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))
	require.NoError(t, s.Clear(ctx))

	_, err := s.Get(ctx, "a")
	require.ErrorIs(t, err, common.ErrNotFound)
	_, err = s.Get(ctx, "b")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestOpsBeforeInitResolveEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewSQLiteStore()

	_, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, common.ErrNotFound)
	require.NoError(t, s.Set(ctx, "k", []byte("v")))
	require.NoError(t, s.Remove(ctx, "k"))
	require.NoError(t, s.Clear(ctx))

	select {
	case <-s.Ready():
		t.Fatal("store must not be ready before Open")
	default:
	}
}

func TestReadySignal(t *testing.T) {
	s := openStore(t)
	select {
	case <-s.Ready():
	default:
		t.Fatal("store must be ready after Open")
	}
}

func TestNextIDMonotonic(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	var prev int64
	for range 10 {
		id, err := s.NextID(ctx)
		require.NoError(t, err)
		require.Greater(t, id, prev)
		prev = id
	}
}

func TestNextIDSurvivesClockRegression(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	// Force the persisted counter far into the future, simulating a wall
	// clock that went backwards relative to previously issued ids.
	future := []byte("99999999999999")
	require.NoError(t, s.Set(ctx, KeyLastID, future))

	id, err := s.NextID(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(100000000000000), id)
}

func TestTaskHelpers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	tasks, err := LoadTasks(ctx, s)
	require.NoError(t, err)
	require.Empty(t, tasks)

	want := []models.Task{
		{ID: 1, Title: "a"},
		{ID: 2, Title: "b", Done: true},
	}
	require.NoError(t, SaveTasks(ctx, s, want))

	tasks, err = LoadTasks(ctx, s)
	require.NoError(t, err)
	require.Equal(t, want, tasks)
}

func TestFilterHelpers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	f, err := LoadFilter(ctx, s)
	require.NoError(t, err)
	require.Equal(t, models.FilterAll, f)

	require.NoError(t, SaveFilter(ctx, s, models.FilterDone))
	f, err = LoadFilter(ctx, s)
	require.NoError(t, err)
	require.Equal(t, models.FilterDone, f)
}

func TestUserIDHelpers(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	id, err := LoadUserID(ctx, s)
	require.NoError(t, err)
	require.Zero(t, id)

	require.NoError(t, SaveUserID(ctx, s, 42))
	id, err = LoadUserID(ctx, s)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)
}
