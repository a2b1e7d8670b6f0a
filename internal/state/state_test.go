package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/envelope"
)

const window = 5 * time.Minute

func TestSealBindsHashToPayload(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	payload := []byte(`{"EncryptedKey":"abc"}`)

	st := Seal(payload, now)
	assert.Equal(t, envelope.Hash(payload), st.ContentHash)

	// The sealed copy must not alias the caller's slice.
	payload[0] = 'X'
	assert.True(t, st.Validate(st.ContentHash, now, window))
}

func TestValidate(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	st := Seal([]byte("payload"), now)

	t.Run("fresh state with own hash passes", func(t *testing.T) {
		assert.True(t, st.Validate(st.ContentHash, now.Add(time.Minute), window))
	})

	t.Run("foreign hash fails", func(t *testing.T) {
		other := envelope.Hash([]byte("other payload"))
		assert.False(t, st.Validate(other, now, window))
	})

	t.Run("mutated payload fails against original hash", func(t *testing.T) {
		tampered := st
		tampered.RawPayload = []byte("payloae")
		assert.False(t, tampered.Validate(st.ContentHash, now, window))
	})

	t.Run("exactly at the window edge passes", func(t *testing.T) {
		assert.True(t, st.Validate(st.ContentHash, now.Add(window), window))
	})

	t.Run("past the window fails", func(t *testing.T) {
		assert.False(t, st.Validate(st.ContentHash, now.Add(window+time.Second), window))
	})
}

func TestValidateExpiryBeatsCorrectHash(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	st := Seal([]byte("payload"), now)
	require.True(t, st.Validate(st.ContentHash, now, window))
	assert.False(t, st.Validate(st.ContentHash, now.Add(time.Hour), window))
}
