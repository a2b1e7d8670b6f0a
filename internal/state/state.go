// Package state holds in-flight payment context as short-lived,
// tamper-evident records. A record binds a content hash to the raw payload;
// every later step revalidates the hash before trusting the payload, and
// nothing survives past the validity window or a successful settlement.
package state

import (
	"crypto/subtle"
	"time"

	"paygate/internal/envelope"
)

// SignedState is the tamper-evident holder for in-flight payment data.
// Consumption is a store concern: stores refuse to hand back a record once
// it has been consumed.
type SignedState struct {
	RawPayload  []byte
	ContentHash string
	CreatedAt   time.Time
}

// Seal computes the content hash binding for a payload.
func Seal(payload []byte, now time.Time) SignedState {
	return SignedState{
		RawPayload:  append([]byte(nil), payload...),
		ContentHash: envelope.Hash(payload),
		CreatedAt:   now,
	}
}

// Validate recomputes the payload hash and compares it to expectedHash in
// constant time. It fails once the validity window has elapsed regardless of
// hash correctness.
func (s SignedState) Validate(expectedHash string, now time.Time, window time.Duration) bool {
	if now.Sub(s.CreatedAt) > window {
		return false
	}
	recomputed := envelope.Hash(s.RawPayload)
	if subtle.ConstantTimeCompare([]byte(recomputed), []byte(expectedHash)) != 1 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(s.ContentHash), []byte(expectedHash)) == 1
}
