package audit

import (
	"context"
	"sync"
)

// InMemoryStore keeps audit events in memory, for tests and single-node
// runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByReference(_ context.Context, reference string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Event
	for _, e := range s.events {
		if e.Reference == reference {
			result = append(result, e)
		}
	}
	return result, nil
}
