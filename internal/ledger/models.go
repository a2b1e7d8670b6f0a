package ledger

import "time"

// Account is a customer bank account. Balance is in minor currency units.
type Account struct {
	ID       string
	UserID   string
	UniqueID string
	Name     string
	Balance  int64
}

// Transfer is one leg of a money movement. Outbound legs carry a negative
// amount. Both legs of an internal transfer share a ReferenceNumber.
type Transfer struct {
	ID              string
	AccountID       string
	Amount          int64
	Description     string
	Counterparty    string
	ReferenceNumber string
	MadeOn          time.Time
}
