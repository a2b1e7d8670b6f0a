// Package directory resolves receiving banks: their registered public keys
// and payment endpoints. Lookups are read-only; the registry itself is
// managed out of band.
package directory

import (
	"context"
	"errors"
	"strings"

	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
)

// Service answers directory queries on top of a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ResolveBank finds a bank by case-insensitive substring match on name,
// swift code and country simultaneously. A miss is an unknown_bank, not an
// internal error. When several entries match all three wildcard fields the
// one with the lowest id wins, so resolution stays deterministic.
func (s *Service) ResolveBank(ctx context.Context, name, swiftCode, country string) (BankEntry, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(swiftCode) == "" || strings.TrimSpace(country) == "" {
		return BankEntry{}, dErrors.New(dErrors.CodeUnknownBank, "bank not found")
	}
	matches, err := s.store.FindByFuzzyIdentity(ctx, name, swiftCode, country)
	if err != nil {
		return BankEntry{}, translate(err)
	}
	return matches[0], nil
}

// ResolveBankByID finds a bank by its directory id.
func (s *Service) ResolveBankByID(ctx context.Context, id string) (BankEntry, error) {
	bank, err := s.store.FindByID(ctx, id)
	if err != nil {
		return BankEntry{}, translate(err)
	}
	return bank, nil
}

// ResolveBankByIdentificationNumbers finds a bank by exact identification
// number match. Banks without a payment endpoint are still resolvable here.
func (s *Service) ResolveBankByIdentificationNumbers(ctx context.Context, identificationNumbers string) (BankEntry, error) {
	bank, err := s.store.FindByIdentificationNumbers(ctx, identificationNumbers)
	if err != nil {
		return BankEntry{}, translate(err)
	}
	return bank, nil
}

// ListPaymentCapableBanks returns banks with a payment endpoint, ordered by
// country then name ascending.
func (s *Service) ListPaymentCapableBanks(ctx context.Context) ([]BankEntry, error) {
	banks, err := s.store.ListPaymentCapable(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list banks", err)
	}
	return banks, nil
}

func translate(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeUnknownBank, "bank not found")
	}
	return dErrors.Wrap(dErrors.CodeInternal, "directory lookup", err)
}
