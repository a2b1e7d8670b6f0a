//go:build integration

package state_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/state"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()
	store := state.NewRedisStore(rc.Client)

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		st := state.Seal([]byte("payload"), time.Now().UTC())
		require.NoError(t, store.Put(ctx, st, time.Minute))

		got, err := store.Get(ctx, st.ContentHash)
		require.NoError(t, err)
		assert.Equal(t, st.ContentHash, got.ContentHash)
		assert.Equal(t, st.RawPayload, got.RawPayload)
	})

	t.Run("unknown hash", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		_, err := store.Get(ctx, "deadbeef")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("ttl expiry evicts", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		st := state.Seal([]byte("short lived"), time.Now().UTC())
		require.NoError(t, store.Put(ctx, st, 100*time.Millisecond))

		time.Sleep(300 * time.Millisecond)
		_, err := store.Get(ctx, st.ContentHash)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("consume is single shot", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		st := state.Seal([]byte("payload"), time.Now().UTC())
		require.NoError(t, store.Put(ctx, st, time.Minute))

		require.NoError(t, store.Consume(ctx, st.ContentHash))
		assert.ErrorIs(t, store.Consume(ctx, st.ContentHash), sentinel.ErrNotFound)
		_, err := store.Get(ctx, st.ContentHash)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		require.NoError(t, rc.FlushAll(ctx))

		st := state.Seal([]byte("contended"), time.Now().UTC())
		require.NoError(t, store.Put(ctx, st, time.Minute))

		const racers = 8
		results := make(chan error, racers)
		for i := 0; i < racers; i++ {
			go func() { results <- store.Consume(ctx, st.ContentHash) }()
		}

		var wins int
		for i := 0; i < racers; i++ {
			if err := <-results; err == nil {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}
