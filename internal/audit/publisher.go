// Package audit captures the settlement audit trail. Events are append-only;
// the orchestrator emits them fail-open so a broken audit path never blocks
// a legitimate payment, but every settlement outcome leaves a trace.
package audit

import (
	"context"
	"time"
)

// Publisher records structured audit events through a Store so tests can
// swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, reference string) ([]Event, error) {
	return p.store.ListByReference(ctx, reference)
}
