// Package storetest holds the behaviour every credentials.Store must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/merchant-console/credentials"
	"github.com/stretchr/testify/require"
)

// Factory builds a fresh, empty store and a function that moves its clock forward.
type Factory func(t *testing.T) (store credentials.Store, advance func(time.Duration))

// Run exercises the store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("set then get returns values unchanged", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "sk_test_abc", credentials.DefaultTTL))

		token, err := store.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "jwt1", token)

		apiKey, err := store.APIKey(ctx)
		require.NoError(t, err)
		require.Equal(t, "sk_test_abc", apiKey)
	})

	t.Run("empty store reports not found", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		_, err := store.Token(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
		_, err = store.APIKey(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("new pair supersedes the previous one", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "key1", 0))
		require.NoError(t, store.Set(ctx, "jwt2", "key2", 0))

		token, err := store.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "jwt2", token)
		apiKey, err := store.APIKey(ctx)
		require.NoError(t, err)
		require.Equal(t, "key2", apiKey)
	})

	t.Run("clear removes both entries and is idempotent", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "key1", 0))
		require.NoError(t, store.Clear(ctx))
		require.NoError(t, store.Clear(ctx))

		_, err := store.Token(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
		_, err = store.APIKey(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("clear on an empty store is not an error", func(t *testing.T) {
		store, _ := newStore(t)
		require.NoError(t, store.Clear(context.Background()))
	})

	t.Run("entries expire after the retention ceiling", func(t *testing.T) {
		store, advance := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "key1", 0))

		advance(credentials.DefaultTTL - time.Minute)
		token, err := store.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "jwt1", token)

		advance(2 * time.Minute)
		_, err = store.Token(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
		_, err = store.APIKey(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("set api key keeps the token", func(t *testing.T) {
		store, _ := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "key1", 0))
		require.NoError(t, store.SetAPIKey(ctx, "key2", 0))

		token, err := store.Token(ctx)
		require.NoError(t, err)
		require.Equal(t, "jwt1", token)
		apiKey, err := store.APIKey(ctx)
		require.NoError(t, err)
		require.Equal(t, "key2", apiKey)
	})

	t.Run("rotated api key expires with the token", func(t *testing.T) {
		store, advance := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.Set(ctx, "jwt1", "key1", 0))
		advance(credentials.DefaultTTL / 2)
		require.NoError(t, store.SetAPIKey(ctx, "key2", 0))

		advance(credentials.DefaultTTL/2 + time.Minute)
		_, err := store.Token(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
		_, err = store.APIKey(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})

	t.Run("api key without a token gets its own expiry", func(t *testing.T) {
		store, advance := newStore(t)
		ctx := context.Background()

		require.NoError(t, store.SetAPIKey(ctx, "key1", time.Hour))

		advance(time.Hour - time.Minute)
		apiKey, err := store.APIKey(ctx)
		require.NoError(t, err)
		require.Equal(t, "key1", apiKey)

		advance(2 * time.Minute)
		_, err = store.APIKey(ctx)
		require.ErrorIs(t, err, credentials.ErrNotFound)
	})
}

// Clock is a manually advanced time source for stores that take WithNowFunc
type Clock struct {
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
