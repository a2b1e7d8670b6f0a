//go:build integration

package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paygate/internal/directory"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/testutil/containers"
)

func TestPostgresStore(t *testing.T) {
	pc := containers.NewPostgresContainer(t)
	ctx := context.Background()

	store := directory.NewPostgresStore(pc.DB)
	require.NoError(t, store.Schema(ctx))

	entries := []directory.BankEntry{
		{ID: "bank-01", Name: "Sofia Commercial Bank", SwiftCode: "SOFCBGSF", Country: "Bulgaria", PublicKeyPEM: "pem-1", PaymentEndpointURL: "https://sofia.example/pay"},
		{ID: "bank-02", Name: "Sofia Savings Bank", SwiftCode: "SOFSBGSF", Country: "Bulgaria", PublicKeyPEM: "pem-2", PaymentEndpointURL: "https://savings.example/pay"},
		{ID: "bank-03", Name: "Berlin Mercantile", SwiftCode: "BERMDEFF", Country: "Germany", PublicKeyPEM: "pem-3", PaymentEndpointURL: "https://berlin.example/pay"},
		{ID: "bank-04", Name: "Archive Trust", SwiftCode: "ARCHBGSF", Country: "Bulgaria", PublicKeyPEM: "pem-4", IdentificationNumbers: "121435409"},
	}
	for _, e := range entries {
		require.NoError(t, store.Upsert(ctx, e))
	}

	t.Run("find by id", func(t *testing.T) {
		bank, err := store.FindByID(ctx, "bank-03")
		require.NoError(t, err)
		assert.Equal(t, "Berlin Mercantile", bank.Name)

		_, err = store.FindByID(ctx, "bank-99")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("fuzzy identity is case-insensitive substring, ordered by id", func(t *testing.T) {
		matches, err := store.FindByFuzzyIdentity(ctx, "sofia", "sof", "bulgaria")
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "bank-01", matches[0].ID)
		assert.Equal(t, "bank-02", matches[1].ID)

		_, err = store.FindByFuzzyIdentity(ctx, "lisbon", "lisb", "portugal")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("find by identification numbers", func(t *testing.T) {
		bank, err := store.FindByIdentificationNumbers(ctx, "121435409")
		require.NoError(t, err)
		assert.Equal(t, "bank-04", bank.ID)
	})

	t.Run("payment-capable listing excludes endpoint-less banks", func(t *testing.T) {
		banks, err := store.ListPaymentCapable(ctx)
		require.NoError(t, err)
		require.Len(t, banks, 3)
		assert.Equal(t, "bank-01", banks[0].ID)
		assert.Equal(t, "bank-02", banks[1].ID)
		assert.Equal(t, "bank-03", banks[2].ID)
	})

	t.Run("upsert replaces an existing entry", func(t *testing.T) {
		updated := entries[0]
		updated.PaymentEndpointURL = "https://sofia.example/v2/pay"
		require.NoError(t, store.Upsert(ctx, updated))

		bank, err := store.FindByID(ctx, "bank-01")
		require.NoError(t, err)
		assert.Equal(t, "https://sofia.example/v2/pay", bank.PaymentEndpointURL)
	})
}
