package payment

import (
	"net/url"
	"strings"

	dErrors "paygate/pkg/domain-errors"
)

// MaxDescriptionLength bounds the free-text description field.
const MaxDescriptionLength = 256

// Info is the payment instruction a merchant produces. It is immutable once
// created; both banks consume it read-only. Amount is in minor currency
// units to keep balance arithmetic exact.
type Info struct {
	Amount                         int64  `json:"Amount"`
	Description                    string `json:"Description"`
	DestinationBankName            string `json:"DestinationBankName"`
	DestinationBankCountry         string `json:"DestinationBankCountry"`
	DestinationBankSwiftCode       string `json:"DestinationBankSwiftCode"`
	DestinationBankAccountUniqueID string `json:"DestinationBankAccountUniqueId"`
	RecipientName                  string `json:"RecipientName"`
	ReturnURL                      string `json:"ReturnUrl"`
}

// Validate checks every field before any Info is trusted. Decoded payment
// data goes through this after signature verification, never instead of it.
func (i Info) Validate() error {
	if i.Amount <= 0 {
		return dErrors.New(dErrors.CodeBadRequest, "amount must be positive")
	}
	if len(i.Description) > MaxDescriptionLength {
		return dErrors.New(dErrors.CodeBadRequest, "description too long")
	}
	if strings.TrimSpace(i.DestinationBankName) == "" ||
		strings.TrimSpace(i.DestinationBankCountry) == "" ||
		strings.TrimSpace(i.DestinationBankSwiftCode) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "destination bank identity incomplete")
	}
	if strings.TrimSpace(i.DestinationBankAccountUniqueID) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "destination account required")
	}
	if i.ReturnURL != "" {
		u, err := url.Parse(i.ReturnURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return dErrors.New(dErrors.CodeBadRequest, "return url must be absolute http(s)")
		}
	}
	return nil
}

// Envelope is the wire message carrying an encrypted, signed Info. Field
// names are the established wire contract with merchants and must not
// change. All four fields are base64 inside the JSON object; the whole
// object is base64-encoded again for transport in form fields.
type Envelope struct {
	EncryptedKey string `json:"EncryptedKey"`
	EncryptedIv  string `json:"EncryptedIv"`
	Data         string `json:"Data"`
	Signature    string `json:"Signature"`
}

// ProofEnvelope is an Envelope forwarded to the chosen bank, extended with
// the sender's directory identity so the receiver can resolve the signer's
// registered public key before trusting anything else.
type ProofEnvelope struct {
	Envelope
	BankName      string `json:"BankName"`
	BankSwiftCode string `json:"BankSwiftCode"`
	BankCountry   string `json:"BankCountry"`
}

// Receipt is the minimal signed acknowledgment a bank returns after
// settlement. Reference is the SHA-256 digest of the original envelope, so
// the merchant can bind the receipt to its request.
type Receipt struct {
	Reference string `json:"Reference"`
	Outcome   string `json:"Outcome"`
	Signature string `json:"Signature"`
}
