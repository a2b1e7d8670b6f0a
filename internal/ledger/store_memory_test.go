package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/pkg/platform/sentinel"
)

func seededStore() *InMemoryStore {
	store := NewInMemoryStore()
	store.Seed(
		Account{ID: "acc-1", UserID: "user-1", UniqueID: "uid-1", Name: "Checking", Balance: 100},
		Account{ID: "acc-2", UserID: "user-1", UniqueID: "uid-2", Name: "Savings", Balance: 50},
		Account{ID: "acc-3", UserID: "user-2", UniqueID: "uid-3", Name: "Business", Balance: 0},
	)
	return store
}

func TestCreateTransferAppliesDelta(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	require.NoError(t, store.CreateTransfer(ctx, Transfer{
		AccountID:       "acc-1",
		Amount:          -30,
		Description:     "groceries",
		ReferenceNumber: "ref-1",
	}))

	acc, err := store.GetAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), acc.Balance)

	transfers, err := store.ListTransfersByReference(ctx, "ref-1")
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, int64(-30), transfers[0].Amount)
}

func TestCreateTransferInsufficientFunds(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	err := store.CreateTransfer(ctx, Transfer{AccountID: "acc-2", Amount: -51})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// A rejected leg mutates nothing.
	acc, err := store.GetAccountByID(ctx, "acc-2")
	require.NoError(t, err)
	assert.Equal(t, int64(50), acc.Balance)
	transfers, err := store.ListRecentTransfers(ctx, "acc-2", 10)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestCreateTransferUnknownAccount(t *testing.T) {
	store := seededStore()
	err := store.CreateTransfer(context.Background(), Transfer{AccountID: "acc-99", Amount: -1})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestConcurrentDebitsOneWinner(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	// Two 60-unit debits against a balance of 100: exactly one settles.
	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CreateTransfer(ctx, Transfer{AccountID: "acc-1", Amount: -60})
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, insufficient int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, insufficient)

	acc, err := store.GetAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), acc.Balance)
}

func TestTransferInternalMovesBothLegs(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	require.NoError(t, store.TransferInternal(ctx, "acc-1", "uid-3", 25, "rent", "ref-internal"))

	src, err := store.GetAccountByID(ctx, "acc-1")
	require.NoError(t, err)
	dst, err := store.GetAccountByID(ctx, "acc-3")
	require.NoError(t, err)
	assert.Equal(t, int64(75), src.Balance)
	assert.Equal(t, int64(25), dst.Balance)

	legs, err := store.ListTransfersByReference(ctx, "ref-internal")
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, int64(0), legs[0].Amount+legs[1].Amount)
}

func TestTransferInternalInsufficientFunds(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	err := store.TransferInternal(ctx, "acc-2", "uid-1", 500, "too much", "ref-x")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	src, _ := store.GetAccountByID(ctx, "acc-2")
	dst, _ := store.GetAccountByID(ctx, "acc-1")
	assert.Equal(t, int64(50), src.Balance)
	assert.Equal(t, int64(100), dst.Balance)
}

func TestTransferInternalUnknownDestination(t *testing.T) {
	store := seededStore()
	err := store.TransferInternal(context.Background(), "acc-1", "uid-missing", 10, "", "ref-y")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestOpposingInternalTransfersDoNotDeadlock(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.TransferInternal(ctx, "acc-1", "uid-2", 1, "", "ref-a")
		}()
		go func() {
			defer wg.Done()
			_ = store.TransferInternal(ctx, "acc-2", "uid-1", 1, "", "ref-b")
		}()
	}
	wg.Wait()

	src, _ := store.GetAccountByID(ctx, "acc-1")
	dst, _ := store.GetAccountByID(ctx, "acc-2")
	assert.Equal(t, int64(150), src.Balance+dst.Balance)
}

func TestListAccountsByUserID(t *testing.T) {
	store := seededStore()

	accounts, err := store.ListAccountsByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
	assert.Equal(t, "acc-2", accounts[1].ID)
}

func TestListRecentTransfersHonorsLimit(t *testing.T) {
	store := seededStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateTransfer(ctx, Transfer{AccountID: "acc-1", Amount: -1}))
	}

	transfers, err := store.ListRecentTransfers(ctx, "acc-1", 3)
	require.NoError(t, err)
	assert.Len(t, transfers, 3)
}
