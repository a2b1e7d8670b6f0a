package directory

// BankEntry is the directory record for a registered bank. Externally
// managed reference data; this module only reads it.
type BankEntry struct {
	ID                    string
	Name                  string
	SwiftCode             string
	Country               string
	PublicKeyPEM          string
	PaymentEndpointURL    string
	IdentificationNumbers string
}

// SupportsPayments reports whether the bank can receive forwarded payment
// envelopes.
func (b BankEntry) SupportsPayments() bool {
	return b.PaymentEndpointURL != ""
}
