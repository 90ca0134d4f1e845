// Package storetest holds the behaviour every links.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IgorGrieder/shorty/internal/processing/links"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run executes the shared store suite. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) links.Store) {
	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		created, err := store.Create(ctx, "abc123", "https://example.com", createdAt)
		require.NoError(t, err)
		assert.Equal(t, "abc123", created.Code)
		assert.Equal(t, "https://example.com", created.Target)
		assert.Zero(t, created.Clicks)
		assert.Nil(t, created.LastClicked)
		assert.True(t, created.CreatedAt.Equal(createdAt), "created_at %v", created.CreatedAt)

		got, err := store.Get(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, created.Code, got.Code)
		assert.Equal(t, created.Target, got.Target)
		assert.True(t, got.CreatedAt.Equal(createdAt))
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(context.Background(), "nope123")
		assert.ErrorIs(t, err, links.ErrNotFound)
	})

	t.Run("duplicate code", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "MYLINK1", "https://a.example", time.Now())
		require.NoError(t, err)

		_, err = store.Create(ctx, "MYLINK1", "https://b.example", time.Now())
		assert.ErrorIs(t, err, links.ErrDuplicateCode)

		got, err := store.Get(ctx, "MYLINK1")
		require.NoError(t, err)
		assert.Equal(t, "https://a.example", got.Target)
	})

	t.Run("codes are case sensitive", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "abcdef", "https://lower.example", time.Now())
		require.NoError(t, err)
		_, err = store.Create(ctx, "ABCDEF", "https://upper.example", time.Now())
		require.NoError(t, err)

		got, err := store.Get(ctx, "ABCDEF")
		require.NoError(t, err)
		assert.Equal(t, "https://upper.example", got.Target)
	})

	t.Run("list newest first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		for i, code := range []string{"first1", "second", "third3"} {
			_, err := store.Create(ctx, code, "https://example.com", base.Add(time.Duration(i)*time.Minute))
			require.NoError(t, err)
		}

		list, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "third3", list[0].Code)
		assert.Equal(t, "second", list[1].Code)
		assert.Equal(t, "first1", list[2].Code)
	})

	t.Run("list empty", func(t *testing.T) {
		store := newStore(t)
		list, err := store.List(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "gone12", "https://example.com", time.Now())
		require.NoError(t, err)

		deleted, err := store.Delete(ctx, "gone12")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = store.Delete(ctx, "gone12")
		require.NoError(t, err)
		assert.False(t, deleted)

		exists, err := store.Exists(ctx, "gone12")
		require.NoError(t, err)
		assert.False(t, exists)

		// A deleted code can be claimed again.
		_, err = store.Create(ctx, "gone12", "https://other.example", time.Now())
		assert.NoError(t, err)
	})

	t.Run("exists", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		exists, err := store.Exists(ctx, "here12")
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = store.Create(ctx, "here12", "https://example.com", time.Now())
		require.NoError(t, err)

		exists, err = store.Exists(ctx, "here12")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("record click", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		_, err := store.Create(ctx, "click1", "https://example.com", createdAt)
		require.NoError(t, err)

		later := createdAt.Add(time.Hour)
		earlier := createdAt.Add(30 * time.Minute)

		require.NoError(t, store.RecordClick(ctx, "click1", later))
		require.NoError(t, store.RecordClick(ctx, "click1", earlier))

		got, err := store.Get(ctx, "click1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Clicks)
		require.NotNil(t, got.LastClicked)
		assert.True(t, got.LastClicked.Equal(later), "last_clicked moved backwards to %v", got.LastClicked)
	})

	t.Run("record click never precedes creation", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

		_, err := store.Create(ctx, "skew12", "https://example.com", createdAt)
		require.NoError(t, err)

		require.NoError(t, store.RecordClick(ctx, "skew12", createdAt.Add(-time.Minute)))

		got, err := store.Get(ctx, "skew12")
		require.NoError(t, err)
		require.NotNil(t, got.LastClicked)
		assert.False(t, got.LastClicked.Before(got.CreatedAt))
	})

	t.Run("record click missing", func(t *testing.T) {
		store := newStore(t)
		err := store.RecordClick(context.Background(), "nope12", time.Now())
		assert.True(t, errors.Is(err, links.ErrNotFound), "got %v", err)
	})

	t.Run("concurrent clicks are not lost", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.Create(ctx, "busy12", "https://example.com", time.Now().Add(-time.Minute))
		require.NoError(t, err)

		const n = 20
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.RecordClick(ctx, "busy12", time.Now())
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := store.Get(ctx, "busy12")
		require.NoError(t, err)
		assert.Equal(t, int64(n), got.Clicks)
	})

	t.Run("ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(context.Background()))
	})
}
