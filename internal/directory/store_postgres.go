package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"

	"paygate/pkg/platform/sentinel"
)

// PostgresStore persists directory entries in PostgreSQL. Fuzzy identity
// lookups use ILIKE wildcards on all three fields at once, ordered by id so
// the service's tie-break stays deterministic.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema creates the banks table if it does not exist.
func (s *PostgresStore) Schema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS banks (
			id                     TEXT PRIMARY KEY,
			name                   TEXT NOT NULL,
			swift_code             TEXT NOT NULL,
			country                TEXT NOT NULL,
			public_key_pem         TEXT NOT NULL,
			payment_endpoint_url   TEXT NOT NULL DEFAULT '',
			identification_numbers TEXT NOT NULL DEFAULT ''
		)`)
	if err != nil {
		return fmt.Errorf("create banks table: %w", err)
	}
	return nil
}

// Upsert inserts or replaces a directory entry.
func (s *PostgresStore) Upsert(ctx context.Context, bank BankEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO banks (id, name, swift_code, country, public_key_pem, payment_endpoint_url, identification_numbers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			swift_code = EXCLUDED.swift_code,
			country = EXCLUDED.country,
			public_key_pem = EXCLUDED.public_key_pem,
			payment_endpoint_url = EXCLUDED.payment_endpoint_url,
			identification_numbers = EXCLUDED.identification_numbers`,
		bank.ID, bank.Name, bank.SwiftCode, bank.Country,
		bank.PublicKeyPEM, bank.PaymentEndpointURL, bank.IdentificationNumbers)
	if err != nil {
		return fmt.Errorf("upsert bank: %w", err)
	}
	return nil
}

const bankColumns = `id, name, swift_code, country, public_key_pem, payment_endpoint_url, identification_numbers`

func (s *PostgresStore) FindByID(ctx context.Context, id string) (BankEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE id = $1`, id)
	return scanBank(row)
}

func (s *PostgresStore) FindByFuzzyIdentity(ctx context.Context, name, swiftCode, country string) ([]BankEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bankColumns+`
		FROM banks
		WHERE name ILIKE '%' || $1 || '%'
		  AND swift_code ILIKE '%' || $2 || '%'
		  AND country ILIKE '%' || $3 || '%'
		ORDER BY id`,
		name, swiftCode, country)
	if err != nil {
		return nil, fmt.Errorf("fuzzy bank lookup: %w", err)
	}
	defer rows.Close()

	banks, err := collectBanks(rows)
	if err != nil {
		return nil, err
	}
	if len(banks) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return banks, nil
}

func (s *PostgresStore) FindByIdentificationNumbers(ctx context.Context, identificationNumbers string) (BankEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bankColumns+` FROM banks WHERE identification_numbers = $1`, identificationNumbers)
	return scanBank(row)
}

func (s *PostgresStore) ListPaymentCapable(ctx context.Context) ([]BankEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bankColumns+`
		FROM banks
		WHERE payment_endpoint_url <> ''
		ORDER BY country, name`)
	if err != nil {
		return nil, fmt.Errorf("list payment capable banks: %w", err)
	}
	defer rows.Close()
	return collectBanks(rows)
}

func scanBank(row *sql.Row) (BankEntry, error) {
	var bank BankEntry
	err := row.Scan(&bank.ID, &bank.Name, &bank.SwiftCode, &bank.Country,
		&bank.PublicKeyPEM, &bank.PaymentEndpointURL, &bank.IdentificationNumbers)
	if errors.Is(err, sql.ErrNoRows) {
		return BankEntry{}, sentinel.ErrNotFound
	}
	if err != nil {
		return BankEntry{}, fmt.Errorf("scan bank: %w", err)
	}
	return bank, nil
}

func collectBanks(rows *sql.Rows) ([]BankEntry, error) {
	var banks []BankEntry
	for rows.Next() {
		var bank BankEntry
		if err := rows.Scan(&bank.ID, &bank.Name, &bank.SwiftCode, &bank.Country,
			&bank.PublicKeyPEM, &bank.PaymentEndpointURL, &bank.IdentificationNumbers); err != nil {
			return nil, fmt.Errorf("scan bank: %w", err)
		}
		banks = append(banks, bank)
	}
	return banks, rows.Err()
}
