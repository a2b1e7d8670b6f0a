package state

import (
	"context"
	"sync"
	"time"

	"paygate/pkg/requestcontext"
	"paygate/pkg/platform/sentinel"
)

// InMemoryStore keeps signed states in a mutex-guarded map. Expiry is
// enforced lazily on read against the request clock; no background eviction
// runs. Consumed entries stay as tombstones until their window elapses, so
// a replayed settlement surfaces as ErrAlreadyUsed rather than an unknown
// state.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	state     SignedState
	expiresAt time.Time
	consumed  bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *InMemoryStore) Put(ctx context.Context, st SignedState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[st.ContentHash] = memoryEntry{
		state:     st,
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

func (s *InMemoryStore) Get(ctx context.Context, contentHash string) (SignedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[contentHash]
	if !ok {
		return SignedState{}, sentinel.ErrNotFound
	}
	if requestcontext.Now(ctx).After(entry.expiresAt) {
		delete(s.entries, contentHash)
		return SignedState{}, sentinel.ErrExpired
	}
	if entry.consumed {
		return SignedState{}, sentinel.ErrAlreadyUsed
	}
	return entry.state, nil
}

func (s *InMemoryStore) Consume(ctx context.Context, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[contentHash]
	if !ok {
		return sentinel.ErrNotFound
	}
	if requestcontext.Now(ctx).After(entry.expiresAt) {
		delete(s.entries, contentHash)
		return sentinel.ErrExpired
	}
	if entry.consumed {
		return sentinel.ErrAlreadyUsed
	}
	entry.consumed = true
	s.entries[contentHash] = entry
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, contentHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, contentHash)
	return nil
}
