package audit

import "context"

// AsyncStore decouples the settlement path from the audit sink. Append only
// enqueues; Run drains the queue into the underlying store through a
// Worker. Reads go straight to the underlying store.
type AsyncStore struct {
	inbox chan Event
	store Store
}

func NewAsyncStore(store Store, buffer int) *AsyncStore {
	return &AsyncStore{inbox: make(chan Event, buffer), store: store}
}

func (s *AsyncStore) Append(ctx context.Context, event Event) error {
	select {
	case s.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AsyncStore) ListByReference(ctx context.Context, reference string) ([]Event, error) {
	return s.store.ListByReference(ctx, reference)
}

// Run blocks draining queued events until ctx is cancelled.
func (s *AsyncStore) Run(ctx context.Context) error {
	return NewWorker(s.store, s.inbox).Run(ctx)
}
