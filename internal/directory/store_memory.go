package directory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"paygate/pkg/platform/sentinel"
)

// InMemoryStore keeps directory entries in a mutex-guarded map. Suited for
// tests and single-node deployments; production uses the Postgres store.
type InMemoryStore struct {
	mu    sync.RWMutex
	banks map[string]BankEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{banks: make(map[string]BankEntry)}
}

// Seed loads entries, replacing any with the same ID.
func (s *InMemoryStore) Seed(entries ...BankEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.banks[e.ID] = e
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bank, ok := s.banks[id]
	if !ok {
		return BankEntry{}, sentinel.ErrNotFound
	}
	return bank, nil
}

func (s *InMemoryStore) FindByFuzzyIdentity(_ context.Context, name, swiftCode, country string) ([]BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []BankEntry
	for _, bank := range s.banks {
		if containsFold(bank.Name, name) &&
			containsFold(bank.SwiftCode, swiftCode) &&
			containsFold(bank.Country, country) {
			matches = append(matches, bank)
		}
	}
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	return matches, nil
}

func (s *InMemoryStore) FindByIdentificationNumbers(_ context.Context, identificationNumbers string) (BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, bank := range s.banks {
		if bank.IdentificationNumbers == identificationNumbers {
			return bank, nil
		}
	}
	return BankEntry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) ListPaymentCapable(_ context.Context) ([]BankEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var banks []BankEntry
	for _, bank := range s.banks {
		if bank.SupportsPayments() {
			banks = append(banks, bank)
		}
	}
	// Country then name, ascending. The ordering is part of the directory
	// contract, not a presentation detail.
	sort.Slice(banks, func(i, j int) bool {
		if banks[i].Country != banks[j].Country {
			return banks[i].Country < banks[j].Country
		}
		return banks[i].Name < banks[j].Name
	})
	return banks, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
