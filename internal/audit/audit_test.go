package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStampsTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, pub.Emit(ctx, Event{Reference: "ref-1", Action: ActionSettled, Amount: 100}))

	events, err := pub.List(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisherKeepsExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	pub := NewPublisher(store)
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), Event{Reference: "ref-1", Action: ActionRejected, Timestamp: at}))

	events, err := pub.List(context.Background(), "ref-1")
	require.NoError(t, err)
	assert.Equal(t, at, events[0].Timestamp)
}

func TestInMemoryStoreFiltersByReference(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Event{Reference: "a", Action: ActionEnvelopeAccepted}))
	require.NoError(t, store.Append(ctx, Event{Reference: "b", Action: ActionSettled}))
	require.NoError(t, store.Append(ctx, Event{Reference: "a", Action: ActionSettled}))

	events, err := store.ListByReference(ctx, "a")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, ActionEnvelopeAccepted, events[0].Action)
	assert.Equal(t, ActionSettled, events[1].Action)
}

func TestAsyncStoreDrainsThroughWorker(t *testing.T) {
	backing := NewInMemoryStore()
	async := NewAsyncStore(backing, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = async.Run(ctx)
	}()

	require.NoError(t, async.Append(ctx, Event{Reference: "ref-1", Action: ActionSettled}))
	require.NoError(t, async.Append(ctx, Event{Reference: "ref-1", Action: ActionCompensated}))

	require.Eventually(t, func() bool {
		events, err := backing.ListByReference(context.Background(), "ref-1")
		return err == nil && len(events) == 2
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
