package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// InMemoryStore keeps accounts and transfers in memory with a lock per
// account, so the check-then-update of one settlement excludes concurrent
// settlements on the same account without serializing unrelated accounts.
type InMemoryStore struct {
	mu        sync.RWMutex
	accounts  map[string]*Account
	byUnique  map[string]string
	transfers map[string][]Transfer
	locks     map[string]*sync.Mutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:  make(map[string]*Account),
		byUnique:  make(map[string]string),
		transfers: make(map[string][]Transfer),
		locks:     make(map[string]*sync.Mutex),
	}
}

// Seed loads accounts, replacing any with the same ID.
func (s *InMemoryStore) Seed(accounts ...Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range accounts {
		acc := a
		s.accounts[acc.ID] = &acc
		s.byUnique[acc.UniqueID] = acc.ID
		if _, ok := s.locks[acc.ID]; !ok {
			s.locks[acc.ID] = &sync.Mutex{}
		}
	}
}

func (s *InMemoryStore) GetAccountByID(_ context.Context, id string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[id]
	if !ok {
		return Account{}, sentinel.ErrNotFound
	}
	return *acc, nil
}

func (s *InMemoryStore) GetAccountByUniqueID(_ context.Context, uniqueID string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUnique[uniqueID]
	if !ok {
		return Account{}, sentinel.ErrNotFound
	}
	return *s.accounts[id], nil
}

func (s *InMemoryStore) ListAccountsByUserID(_ context.Context, userID string) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var accounts []Account
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			accounts = append(accounts, *acc)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })
	return accounts, nil
}

// CreateTransfer applies one leg: balance delta plus record, atomically per
// account.
func (s *InMemoryStore) CreateTransfer(ctx context.Context, t Transfer) error {
	lock, err := s.accountLock(t.AccountID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()
	return s.applyLeg(ctx, t)
}

// TransferInternal moves amount between two local accounts. Locks are taken
// in account-id order so two opposing internal transfers cannot deadlock,
// and both legs commit or neither does.
func (s *InMemoryStore) TransferInternal(ctx context.Context, sourceAccountID, destUniqueID string, amount int64, description, referenceNumber string) error {
	s.mu.RLock()
	destID, ok := s.byUnique[destUniqueID]
	s.mu.RUnlock()
	if !ok {
		return sentinel.ErrNotFound
	}

	srcLock, err := s.accountLock(sourceAccountID)
	if err != nil {
		return err
	}
	dstLock, err := s.accountLock(destID)
	if err != nil {
		return err
	}

	first, second := srcLock, dstLock
	if destID < sourceAccountID {
		first, second = dstLock, srcLock
	}
	first.Lock()
	defer first.Unlock()
	if first != second {
		second.Lock()
		defer second.Unlock()
	}

	if err := s.applyLeg(ctx, Transfer{
		AccountID:       sourceAccountID,
		Amount:          -amount,
		Description:     description,
		Counterparty:    destUniqueID,
		ReferenceNumber: referenceNumber,
	}); err != nil {
		return err
	}
	return s.applyLeg(ctx, Transfer{
		AccountID:       destID,
		Amount:          amount,
		Description:     description,
		ReferenceNumber: referenceNumber,
	})
}

func (s *InMemoryStore) ListTransfersByReference(_ context.Context, referenceNumber string) ([]Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []Transfer
	for _, legs := range s.transfers {
		for _, t := range legs {
			if t.ReferenceNumber == referenceNumber {
				result = append(result, t)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *InMemoryStore) ListRecentTransfers(_ context.Context, accountID string, limit int) ([]Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	legs := append([]Transfer(nil), s.transfers[accountID]...)
	sort.Slice(legs, func(i, j int) bool { return legs[i].MadeOn.After(legs[j].MadeOn) })
	if limit > 0 && len(legs) > limit {
		legs = legs[:limit]
	}
	return legs, nil
}

// applyLeg assumes the account lock is held.
func (s *InMemoryStore) applyLeg(ctx context.Context, t Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[t.AccountID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if t.Amount < 0 && acc.Balance+t.Amount < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance += t.Amount

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.MadeOn.IsZero() {
		t.MadeOn = requestcontext.Now(ctx)
	}
	s.transfers[t.AccountID] = append(s.transfers[t.AccountID], t)
	return nil
}

func (s *InMemoryStore) accountLock(accountID string) (*sync.Mutex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock, nil
}
