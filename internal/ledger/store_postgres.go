package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"paygate/pkg/platform/sentinel"
)

// PostgresStore persists accounts and transfers in PostgreSQL. Settlement
// legs run in a single transaction with SELECT ... FOR UPDATE, which gives
// the serializable check-then-update the protocol requires while leaving
// unrelated accounts untouched.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema creates the ledger tables if they do not exist.
func (s *PostgresStore) Schema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS accounts (
			id        TEXT PRIMARY KEY,
			user_id   TEXT NOT NULL,
			unique_id TEXT NOT NULL UNIQUE,
			name      TEXT NOT NULL DEFAULT '',
			balance   BIGINT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS transfers (
			id               TEXT PRIMARY KEY,
			account_id       TEXT NOT NULL REFERENCES accounts(id),
			amount           BIGINT NOT NULL,
			description      TEXT NOT NULL DEFAULT '',
			counterparty     TEXT NOT NULL DEFAULT '',
			reference_number TEXT NOT NULL,
			made_on          TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS transfers_reference_idx ON transfers (reference_number)`)
	if err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// UpsertAccount inserts or replaces an account. Provisioning only; balances
// move through transfers.
func (s *PostgresStore) UpsertAccount(ctx context.Context, acc Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, unique_id, name, balance)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			unique_id = EXCLUDED.unique_id,
			name = EXCLUDED.name,
			balance = EXCLUDED.balance`,
		acc.ID, acc.UserID, acc.UniqueID, acc.Name, acc.Balance)
	if err != nil {
		return fmt.Errorf("upsert account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccountByID(ctx context.Context, id string) (Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, unique_id, name, balance FROM accounts WHERE id = $1`, id))
}

func (s *PostgresStore) GetAccountByUniqueID(ctx context.Context, uniqueID string) (Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT id, user_id, unique_id, name, balance FROM accounts WHERE unique_id = $1`, uniqueID))
}

func (s *PostgresStore) ListAccountsByUserID(ctx context.Context, userID string) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, unique_id, name, balance FROM accounts WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		if err := rows.Scan(&acc.ID, &acc.UserID, &acc.UniqueID, &acc.Name, &acc.Balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) CreateTransfer(ctx context.Context, t Transfer) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return applyLegTx(ctx, tx, t)
	})
}

func (s *PostgresStore) TransferInternal(ctx context.Context, sourceAccountID, destUniqueID string, amount int64, description, referenceNumber string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var destID string
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM accounts WHERE unique_id = $1`, destUniqueID).Scan(&destID)
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("resolve destination account: %w", err)
		}

		// Lock both rows in sorted id order before touching either leg so
		// opposing internal transfers cannot deadlock each other.
		first, second := sourceAccountID, destID
		if second < first {
			first, second = second, first
		}
		for _, id := range []string{first, second} {
			if _, err := tx.ExecContext(ctx,
				`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
				return fmt.Errorf("lock account: %w", err)
			}
		}

		if err := applyLegTx(ctx, tx, Transfer{
			AccountID:       sourceAccountID,
			Amount:          -amount,
			Description:     description,
			Counterparty:    destUniqueID,
			ReferenceNumber: referenceNumber,
		}); err != nil {
			return err
		}
		return applyLegTx(ctx, tx, Transfer{
			AccountID:       destID,
			Amount:          amount,
			Description:     description,
			ReferenceNumber: referenceNumber,
		})
	})
}

func (s *PostgresStore) ListTransfersByReference(ctx context.Context, referenceNumber string) ([]Transfer, error) {
	return s.queryTransfers(ctx,
		`SELECT id, account_id, amount, description, counterparty, reference_number, made_on
		 FROM transfers WHERE reference_number = $1 ORDER BY id`, referenceNumber)
}

func (s *PostgresStore) ListRecentTransfers(ctx context.Context, accountID string, limit int) ([]Transfer, error) {
	return s.queryTransfers(ctx,
		`SELECT id, account_id, amount, description, counterparty, reference_number, made_on
		 FROM transfers WHERE account_id = $1 ORDER BY made_on DESC LIMIT $2`, accountID, limit)
}

func (s *PostgresStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// applyLegTx locks the account row, checks the balance for outbound legs,
// applies the delta and inserts the record.
func applyLegTx(ctx context.Context, tx *sql.Tx, t Transfer) error {
	var balance int64
	err := tx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, t.AccountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	if t.Amount < 0 && balance+t.Amount < 0 {
		return ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE id = $2`, t.Amount, t.AccountID); err != nil {
		return fmt.Errorf("apply balance delta: %w", err)
	}

	id := t.ID
	if id == "" {
		id = uuid.NewString()
	}
	madeOn := t.MadeOn
	if madeOn.IsZero() {
		madeOn = time.Now()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (id, account_id, amount, description, counterparty, reference_number, made_on)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, t.AccountID, t.Amount, t.Description, t.Counterparty, t.ReferenceNumber, madeOn); err != nil {
		return fmt.Errorf("insert transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) queryTransfers(ctx context.Context, query string, args ...any) ([]Transfer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	var transfers []Transfer
	for rows.Next() {
		var t Transfer
		if err := rows.Scan(&t.ID, &t.AccountID, &t.Amount, &t.Description, &t.Counterparty, &t.ReferenceNumber, &t.MadeOn); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

func scanAccount(row *sql.Row) (Account, error) {
	var acc Account
	err := row.Scan(&acc.ID, &acc.UserID, &acc.UniqueID, &acc.Name, &acc.Balance)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("scan account: %w", err)
	}
	return acc, nil
}
