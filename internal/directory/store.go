package directory

import "context"

// Store is the read surface of the bank directory. Implementations must
// return sentinel.ErrNotFound when no entry matches.
//
// FindByFuzzyIdentity matches name, swift code and country simultaneously as
// case-insensitive substrings. When the backing data holds more than one
// match, implementations return all of them and the service applies the
// deterministic tie-break.
type Store interface {
	FindByID(ctx context.Context, id string) (BankEntry, error)
	FindByFuzzyIdentity(ctx context.Context, name, swiftCode, country string) ([]BankEntry, error)
	FindByIdentificationNumbers(ctx context.Context, identificationNumbers string) (BankEntry, error)
	ListPaymentCapable(ctx context.Context) ([]BankEntry, error)
}
