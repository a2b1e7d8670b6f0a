package state

import (
	"context"
	"time"
)

// Store keeps signed payment states keyed by content hash for the duration
// of their validity window. Implementations return sentinel.ErrNotFound for
// unknown or evicted hashes; fetching a consumed state yields
// sentinel.ErrAlreadyUsed where the backend can tell the difference, or
// sentinel.ErrNotFound where consumption removes the key outright. Callers
// must treat both as a dead state.
type Store interface {
	Put(ctx context.Context, st SignedState, ttl time.Duration) error
	Get(ctx context.Context, contentHash string) (SignedState, error)
	// Consume atomically retires the state, so a replayed confirmation can
	// never settle twice. Exactly one of two racing Consume calls succeeds.
	Consume(ctx context.Context, contentHash string) error
	Delete(ctx context.Context, contentHash string) error
}
