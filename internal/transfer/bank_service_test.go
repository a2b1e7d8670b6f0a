package transfer_test

import (
	"context"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"paygate/internal/audit"
	"paygate/internal/ledger"
	"paygate/internal/payment"
	"paygate/internal/state"
	"paygate/internal/transfer"
	"paygate/internal/transfer/mocks"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/requestcontext"
)

const relayURL = "https://central.example/transfers/receive"

type bankFixture struct {
	service *transfer.BankService
	ledger  *ledger.InMemoryStore
	states  *state.InMemoryStore
	sender  *mocks.MockEnvelopeSender
	audits  *audit.InMemoryStore
	bank    *rsa.PrivateKey
	central *rsa.PrivateKey
}

func newBankFixture(t *testing.T) *bankFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	sender := mocks.NewMockEnvelopeSender(ctrl)
	audits := audit.NewInMemoryStore()
	bank := testRSAKey(t)
	central := testRSAKey(t)

	ledgerStore := ledger.NewInMemoryStore()
	ledgerStore.Seed(
		ledger.Account{ID: "acc-1", UserID: "user-1", UniqueID: "uid-1", Name: "Checking", Balance: 200000},
		ledger.Account{ID: "acc-2", UserID: "user-1", UniqueID: "uid-2", Name: "Savings", Balance: 100},
		ledger.Account{ID: "acc-3", UserID: "user-2", UniqueID: "acc-7f3e", Name: "Recipient", Balance: 0},
	)

	states := state.NewInMemoryStore()
	svc := transfer.NewBankService(
		bank,
		&central.PublicKey,
		payment.BankIdentity{Name: "Sofia Commercial Bank", SwiftCode: "SOFCBGSF", Country: "Bulgaria"},
		ledgerStore,
		states,
		stateTTL,
		sender,
		relayURL,
		audit.NewPublisher(audits),
		nil,
		discardLogger(),
	)
	return &bankFixture{
		service: svc,
		ledger:  ledgerStore,
		states:  states,
		sender:  sender,
		audits:  audits,
		bank:    bank,
		central: central,
	}
}

// accept runs the proof envelope for info through AcceptProof, as if the
// central API had forwarded it.
func (f *bankFixture) accept(t *testing.T, ctx context.Context, info payment.Info) transfer.Initiation {
	t.Helper()
	proof, err := payment.GenerateProofEnvelope(info, &f.bank.PublicKey, f.central, payment.BankIdentity{})
	require.NoError(t, err)

	init, err := f.service.AcceptProof(ctx, proof)
	require.NoError(t, err)
	return init
}

func (f *bankFixture) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	acc, err := f.ledger.GetAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

// localInfo targets an account held at this bank, so settlement is one
// internal two-leg transfer.
func localInfo() payment.Info {
	info := paymentInfo()
	info.DestinationBankSwiftCode = "SOFCBGSF"
	return info
}

// remoteInfo targets an account at another bank; settling it debits locally
// and forwards the proof through the central relay.
func remoteInfo() payment.Info {
	info := paymentInfo()
	info.DestinationBankName = "Berlin Mercantile"
	info.DestinationBankCountry = "Germany"
	info.DestinationBankSwiftCode = "BERMDEFF"
	info.DestinationBankAccountUniqueID = "de-acc-9912"
	return info
}

func TestBankAcceptProofRejectsForeignSigner(t *testing.T) {
	f := newBankFixture(t)
	imposter := testRSAKey(t)

	proof, err := payment.GenerateProofEnvelope(paymentInfo(), &f.bank.PublicKey, imposter, payment.BankIdentity{})
	require.NoError(t, err)

	_, err = f.service.AcceptProof(context.Background(), proof)
	assert.True(t, dErrors.Is(err, dErrors.CodeInvalidEnvelope))
}

func TestBankConfirmationData(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())

	info, accounts, dataHash, err := f.service.ConfirmationData(ctx, "user-1", init.StatePayload)
	require.NoError(t, err)
	assert.Equal(t, localInfo(), info)
	assert.Equal(t, init.ContentHash, dataHash)
	require.Len(t, accounts, 2)
	assert.Equal(t, "acc-1", accounts[0].ID)
}

func TestBankConfirmInternalSettlement(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())

	result, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	require.NoError(t, err)
	assert.Equal(t, transfer.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, localInfo().ReturnURL, result.ReturnURL)
	assert.Equal(t, init.ContentHash, result.Reference)

	// Debit and credit both applied.
	assert.Equal(t, int64(75000), f.balance(t, "acc-1"))
	assert.Equal(t, int64(125000), f.balance(t, "acc-3"))

	// The receipt verifies against this bank's public key and the reference.
	receipt, err := payment.VerifySuccessResponse(result.Receipt, init.ContentHash, &f.bank.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "settled", receipt.Outcome)

	events, err := f.audits.ListByReference(ctx, init.ContentHash)
	require.NoError(t, err)
	actions := make([]audit.Action, 0, len(events))
	for _, e := range events {
		actions = append(actions, e.Action)
	}
	assert.Contains(t, actions, audit.ActionSettled)
}

func TestBankConfirmReplayAfterSettlement(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())
	req := transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	}

	_, err := f.service.Confirm(ctx, req)
	require.NoError(t, err)
	settled := f.balance(t, "acc-1")

	// Replaying the identical confirmation settles nothing a second time.
	_, err = f.service.Confirm(ctx, req)
	assert.True(t, dErrors.Is(err, dErrors.CodeStateTampered))
	assert.Equal(t, settled, f.balance(t, "acc-1"))
	assert.Equal(t, int64(125000), f.balance(t, "acc-3"))
}

func TestBankConfirmForeignAccountForbidden(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())

	// acc-3 belongs to user-2.
	_, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-3",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeForbidden))
}

func TestBankConfirmSelfTransferRejectedWithoutMutation(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	info := localInfo()
	info.DestinationBankAccountUniqueID = "uid-1"
	init := f.accept(t, ctx, info)

	_, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeSameAccount))
	assert.Equal(t, int64(200000), f.balance(t, "acc-1"))

	transfers, err := f.ledger.ListTransfersByReference(ctx, init.ContentHash)
	require.NoError(t, err)
	assert.Empty(t, transfers)
}

func TestBankConfirmInsufficientFundsKeepsStateUsable(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())

	// acc-2 holds 100, far below the 125000 owed.
	result, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-2",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeInsufficientFunds))
	assert.Equal(t, transfer.OutcomeInsufficientFunds, result.Outcome)
	assert.Equal(t, int64(100), f.balance(t, "acc-2"))

	// The user can retry from an account with funds.
	_, err = f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75000), f.balance(t, "acc-1"))
}

func TestBankConfirmCookieHashMismatch(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, localInfo())

	_, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     "0000000000000000000000000000000000000000000000000000000000000000",
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeStateTampered))
	assert.Equal(t, int64(200000), f.balance(t, "acc-1"))
}

func TestBankConfirmExpiredState(t *testing.T) {
	f := newBankFixture(t)
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	init := f.accept(t, ctx, localInfo())

	later := requestcontext.WithTime(context.Background(), now.Add(stateTTL+time.Minute))
	_, err := f.service.Confirm(later, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeStateTampered))
	assert.Equal(t, int64(200000), f.balance(t, "acc-1"))
}

func TestBankConfirmCrossBankForwardsProof(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	// Destination at another bank: debit locally, forward via the relay.
	init := f.accept(t, ctx, remoteInfo())

	var forwarded string
	f.sender.EXPECT().
		Send(gomock.Any(), relayURL, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, encoded string) error {
			forwarded = encoded
			return nil
		})

	result, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	require.NoError(t, err)
	assert.Equal(t, transfer.OutcomeSucceeded, result.Outcome)
	assert.Equal(t, int64(75000), f.balance(t, "acc-1"))

	// The forwarded proof carries this bank's directory identity and opens
	// for the central API under this bank's registered key.
	proof, err := payment.DecodeProofEnvelope(forwarded)
	require.NoError(t, err)
	assert.Equal(t, "SOFCBGSF", proof.BankSwiftCode)
	got, err := proof.Open(f.central, &f.bank.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, remoteInfo(), got)
}

func TestBankConfirmForwardFailureCompensates(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	init := f.accept(t, ctx, remoteInfo())

	f.sender.EXPECT().
		Send(gomock.Any(), relayURL, gomock.Any()).
		Return(dErrors.New(dErrors.CodeTransient, "relay unavailable"))

	_, err := f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	assert.True(t, dErrors.Is(err, dErrors.CodeTransient))

	// The debit was reversed under the same reference.
	assert.Equal(t, int64(200000), f.balance(t, "acc-1"))
	legs, err := f.ledger.ListTransfersByReference(ctx, init.ContentHash)
	require.NoError(t, err)
	require.Len(t, legs, 2)
	assert.Equal(t, int64(0), legs[0].Amount+legs[1].Amount)

	events, err := f.audits.ListByReference(ctx, init.ContentHash)
	require.NoError(t, err)
	var compensated bool
	for _, e := range events {
		if e.Action == audit.ActionCompensated {
			compensated = true
		}
	}
	assert.True(t, compensated)

	// Transient failure restored the state; a retry can still settle.
	f.sender.EXPECT().
		Send(gomock.Any(), relayURL, gomock.Any()).
		Return(nil)
	_, err = f.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       "user-1",
		AccountID:    "acc-1",
		DataHash:     init.ContentHash,
		StatePayload: init.StatePayload,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(75000), f.balance(t, "acc-1"))
}

func TestBankReceiveCredit(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	info := paymentInfo()
	encoded, err := payment.Encode(info, f.central, &f.bank.PublicKey)
	require.NoError(t, err)

	require.NoError(t, f.service.ReceiveCredit(ctx, encoded))
	assert.Equal(t, int64(125000), f.balance(t, "acc-3"))
}

func TestBankReceiveCreditReplayIsRejected(t *testing.T) {
	f := newBankFixture(t)
	ctx := context.Background()

	info := paymentInfo()
	encoded, err := payment.Encode(info, f.central, &f.bank.PublicKey)
	require.NoError(t, err)

	require.NoError(t, f.service.ReceiveCredit(ctx, encoded))
	require.Equal(t, int64(125000), f.balance(t, "acc-3"))

	// Re-posting the captured envelope must not produce a second credit.
	err = f.service.ReceiveCredit(ctx, encoded)
	require.Error(t, err)
	assert.True(t, dErrors.Is(err, dErrors.CodeStateTampered))
	assert.Equal(t, int64(125000), f.balance(t, "acc-3"))
}

func TestBankReceiveCreditUnknownAccount(t *testing.T) {
	f := newBankFixture(t)

	info := paymentInfo()
	info.DestinationBankAccountUniqueID = "uid-unknown"
	encoded, err := payment.Encode(info, f.central, &f.bank.PublicKey)
	require.NoError(t, err)

	err = f.service.ReceiveCredit(context.Background(), encoded)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}
