package transfer

import (
	"encoding/base64"
	"encoding/json"

	dErrors "paygate/pkg/domain-errors"
)

// decodedEnvelopeJSON strips the outer base64 layer, leaving the envelope
// JSON that travels in the PaymentData cookie.
func decodedEnvelopeJSON(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	if !json.Valid(raw) {
		return nil, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	return raw, nil
}

// encodeEnvelopeJSON restores the outer base64 layer for codec calls.
func encodeEnvelopeJSON(payload []byte) string {
	return base64.StdEncoding.EncodeToString(payload)
}
