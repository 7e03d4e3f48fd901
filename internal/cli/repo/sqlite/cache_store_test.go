package sqlite

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Gilad-Weinberger/Sikumon/internal/cli/cache"
)

func openTemp(t *testing.T, login string) (*CacheStore, string) {
	t.Helper()
	s, path, err := OpenForUser(t.TempDir(), login)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s, path
}

func TestOpenForUser_And_Migrate(t *testing.T) {
	s, path := openTemp(t, "john@example.com")
	_, err := os.Stat(path)
	require.NoError(t, err, "db file not created")
	assert.Equal(t, "client.sqlite", filepath.Base(path))

	// migrations are idempotent
	require.NoError(t, s.Migrate())
}

func TestOpenForUser_Errors(t *testing.T) {
	_, _, err := OpenForUser(t.TempDir(), "")
	assert.Error(t, err)

	_, _, err = OpenForUser("", "john")
	assert.Error(t, err)

	// base path is a regular file
	f := filepath.Join(t.TempDir(), "not_dir")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o600))
	_, _, err = OpenForUser(f, "john")
	assert.Error(t, err)
}

func TestSafeDirName(t *testing.T) {
	assert.Equal(t, "a_b_c", safeDirName("a/b:c"))
	assert.Equal(t, "john@example.com", safeDirName("john@example.com"))
}

func TestCacheStore_SetGetExpire(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "ann")
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	e := cache.Entry{Key: "summaries/detail/a", Data: json.RawMessage(`{"id":"a"}`), FetchedAt: now, ExpiresAt: now.Add(10 * time.Minute)}
	require.NoError(t, s.Set(ctx, e))

	got, err := s.Get(ctx, e.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{"id":"a"}`, string(got.Data))
	assert.True(t, got.FetchedAt.Equal(now))
	assert.False(t, got.Invalidated)

	// upsert replaces the row
	e.Data = json.RawMessage(`{"id":"a","name":"x"}`)
	e.Invalidated = true
	require.NoError(t, s.Set(ctx, e))
	got, _ = s.Get(ctx, e.Key)
	assert.JSONEq(t, `{"id":"a","name":"x"}`, string(got.Data))
	assert.True(t, got.Invalidated)

	now = now.Add(11 * time.Minute)
	got, err = s.Get(ctx, e.Key)
	require.NoError(t, err)
	assert.Nil(t, got)

	n, err := s.Sweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheStore_InvalidatePrefix(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "ann")
	now := time.Now()

	for _, k := range []string{"summaries/list/1|10", "summaries/list/2|10", "summaries/detail/a", "summaries/list_x"} {
		require.NoError(t, s.Set(ctx, cache.Entry{Key: k, Data: json.RawMessage(`1`), FetchedAt: now, ExpiresAt: now.Add(time.Hour)}))
	}
	require.NoError(t, s.Invalidate(ctx, "summaries/list/"))

	for k, want := range map[string]bool{
		"summaries/list/1|10": true,
		"summaries/list/2|10": true,
		"summaries/detail/a":  false,
		"summaries/list_x":    false,
	} {
		got, err := s.Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, want, got.Invalidated, k)
	}
}

func TestCacheStore_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "ann")
	now := time.Now()
	for _, k := range []string{"a", "b"} {
		require.NoError(t, s.Set(ctx, cache.Entry{Key: k, Data: json.RawMessage(`1`), FetchedAt: now, ExpiresAt: now.Add(time.Hour)}))
	}

	require.NoError(t, s.Delete(ctx, "a"))
	a, _ := s.Get(ctx, "a")
	assert.Nil(t, a)

	require.NoError(t, s.Clear(ctx))
	b, _ := s.Get(ctx, "b")
	assert.Nil(t, b)
}

func TestCacheStore_BacksQueryClient(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t, "ann")
	c := cache.NewClient(s, zap.NewNop().Sugar())

	calls := 0
	fn := func(context.Context) (string, error) { calls++; return "v", nil }
	opts := cache.Options{StaleTime: time.Minute, GCTime: time.Hour}
	for i := 0; i < 2; i++ {
		v, err := cache.Fetch(ctx, c, "k", opts, fn)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, 1, calls)
}
