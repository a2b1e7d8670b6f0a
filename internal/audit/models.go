package audit

import (
	"context"
	"time"
)

// Action identifies what happened to a payment flow.
type Action string

const (
	ActionEnvelopeAccepted Action = "envelope_accepted"
	ActionEnvelopeRejected Action = "envelope_rejected"
	ActionProofForwarded   Action = "proof_forwarded"
	ActionSettled          Action = "settled"
	ActionRejected         Action = "rejected"
	ActionCompensated      Action = "compensated"
)

// Event is one append-only audit record for a payment flow.
type Event struct {
	Reference string    `json:"reference"`
	Action    Action    `json:"action"`
	Reason    string    `json:"reason,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Amount    int64     `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the audit sink. Append must never mutate or reorder prior events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByReference(ctx context.Context, reference string) ([]Event, error)
}
