// Package ledger is the account service boundary the orchestrator settles
// against. Only its contracts matter to the protocol: reads by id, and an
// atomic check-then-update transfer application.
package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientFunds reports that an outbound transfer would overdraw the
// account. It is a business fact, not an infrastructure failure.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Store exposes the ledger operations the payment protocol consumes.
//
// CreateTransfer applies the balance delta and inserts the transfer record
// as one atomic unit relative to other transfers against the same account.
// Concurrent transfers against different accounts must not block each other.
type Store interface {
	GetAccountByID(ctx context.Context, id string) (Account, error)
	GetAccountByUniqueID(ctx context.Context, uniqueID string) (Account, error)
	ListAccountsByUserID(ctx context.Context, userID string) ([]Account, error)
	CreateTransfer(ctx context.Context, t Transfer) error
	// TransferInternal moves amount between two local accounts atomically,
	// writing both legs under one reference number.
	TransferInternal(ctx context.Context, sourceAccountID, destUniqueID string, amount int64, description, referenceNumber string) error
	ListTransfersByReference(ctx context.Context, referenceNumber string) ([]Transfer, error)
	ListRecentTransfers(ctx context.Context, accountID string, limit int) ([]Transfer, error)
}
