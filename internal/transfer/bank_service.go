package transfer

import (
	"context"
	"crypto/rsa"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"paygate/internal/audit"
	"paygate/internal/envelope"
	"paygate/internal/ledger"
	"paygate/internal/payment"
	"paygate/internal/state"
	"paygate/internal/transfer/metrics"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

// BankService runs the settlement half of the protocol at a participating
// bank: it accepts forwarded proof envelopes, shows the confirmation data to
// the authenticated user, and performs the atomic debit/credit when the
// user confirms.
type BankService struct {
	privateKey *rsa.PrivateKey
	centralKey *rsa.PublicKey
	identity   payment.BankIdentity
	ledger     ledger.Store
	states     state.Store
	stateTTL   time.Duration
	sender     EnvelopeSender
	relayURL   string
	auditor    *audit.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger
	tracer     trace.Tracer
}

func NewBankService(
	privateKey *rsa.PrivateKey,
	centralKey *rsa.PublicKey,
	identity payment.BankIdentity,
	ledgerStore ledger.Store,
	states state.Store,
	stateTTL time.Duration,
	sender EnvelopeSender,
	relayURL string,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BankService {
	return &BankService{
		privateKey: privateKey,
		centralKey: centralKey,
		identity:   identity,
		ledger:     ledgerStore,
		states:     states,
		stateTTL:   stateTTL,
		sender:     sender,
		relayURL:   relayURL,
		auditor:    auditor,
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("paygate/transfer"),
	}
}

// AcceptProof verifies an inbound proof envelope from the central API and
// seals it as signed state for the confirmation step.
func (s *BankService) AcceptProof(ctx context.Context, encoded string) (Initiation, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.AcceptProof")
	defer span.End()

	info, err := payment.Decode(encoded, s.privateKey, s.centralKey)
	if err != nil {
		s.metrics.IncEnvelopeDecoded("rejected")
		return Initiation{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	s.metrics.IncEnvelopeDecoded("ok")

	payload, err := decodedEnvelopeJSON(encoded)
	if err != nil {
		return Initiation{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}

	sealed := state.Seal(payload, requestcontext.Now(ctx))
	if err := s.states.Put(ctx, sealed, s.stateTTL); err != nil {
		return Initiation{}, dErrors.Wrap(dErrors.CodeInternal, "store payment state", err)
	}

	s.emitAudit(ctx, audit.Event{
		Reference: sealed.ContentHash,
		Action:    audit.ActionEnvelopeAccepted,
		Amount:    info.Amount,
	})
	return Initiation{Info: info, ContentHash: sealed.ContentHash, StatePayload: payload}, nil
}

// ConfirmationData reparses the in-flight payment and lists the user's own
// accounts for the confirmation choice (AwaitingConfirmation).
func (s *BankService) ConfirmationData(ctx context.Context, userID string, statePayload []byte) (payment.Info, []ledger.Account, string, error) {
	info, err := s.reopen(ctx, statePayload)
	if err != nil {
		return payment.Info{}, nil, "", err
	}
	accounts, err := s.ledger.ListAccountsByUserID(ctx, userID)
	if err != nil {
		return payment.Info{}, nil, "", dErrors.Wrap(dErrors.CodeInternal, "list accounts", err)
	}
	return info, accounts, envelope.Hash(statePayload), nil
}

// Confirm settles a confirmed payment: it validates the signed state,
// checks ownership and business rules, applies the atomic balance change,
// and returns the signed receipt. The signed state entry is consumed before
// the ledger is touched, so a replay of the same confirmation can never
// settle twice; on failure the state is restored for codes the user may
// correct.
func (s *BankService) Confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.Confirm")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveSettlementLatency(time.Since(start)) }()

	result, err := s.confirm(ctx, req)
	switch {
	case err == nil:
		s.metrics.IncSettlementOutcome("succeeded")
	case dErrors.Is(err, dErrors.CodeInsufficientFunds):
		s.metrics.IncSettlementOutcome("insufficient_funds")
	default:
		s.metrics.IncSettlementOutcome(string(dErrors.CodeOf(err)))
	}
	return result, err
}

func (s *BankService) confirm(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	reference := envelope.Hash(req.StatePayload)
	if reference != req.DataHash {
		return ConfirmResult{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}

	stored, err := s.states.Get(ctx, reference)
	if err != nil {
		return ConfirmResult{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	if !stored.Validate(req.DataHash, requestcontext.Now(ctx), s.stateTTL) {
		return ConfirmResult{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}

	// Account ownership and envelope reopening are independent; gather them
	// concurrently.
	var (
		account ledger.Account
		info    payment.Info
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		account, err = s.ledger.GetAccountByID(gctx, req.AccountID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "account not available")
		}
		return err
	})
	g.Go(func() error {
		var err error
		info, err = s.reopen(gctx, req.StatePayload)
		return err
	})
	if err := g.Wait(); err != nil {
		return ConfirmResult{}, err
	}

	if account.UserID != req.UserID {
		return ConfirmResult{}, dErrors.New(dErrors.CodeForbidden, "account not available")
	}
	if account.UniqueID == info.DestinationBankAccountUniqueID {
		return ConfirmResult{}, dErrors.New(dErrors.CodeSameAccount, "source and destination accounts are identical")
	}

	// Consume first: the state entry is the replay lock. Restore it only for
	// failures the user can correct and retry from the same cookie.
	if err := s.states.Consume(ctx, reference); err != nil {
		return ConfirmResult{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}

	if err := s.settle(ctx, account, info, reference); err != nil {
		if restoreErr := s.states.Put(ctx, stored, s.remainingTTL(ctx, stored)); restoreErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore payment state",
				"reference", reference,
				"error", restoreErr,
			)
		}
		s.emitAudit(ctx, audit.Event{
			Reference: reference,
			Action:    audit.ActionRejected,
			Reason:    string(dErrors.CodeOf(err)),
			UserID:    req.UserID,
		})
		return ConfirmResult{Outcome: outcomeFor(err)}, err
	}

	receipt, err := payment.GenerateSuccessResponse(reference, s.privateKey)
	if err != nil {
		return ConfirmResult{}, err
	}

	s.emitAudit(ctx, audit.Event{
		Reference: reference,
		Action:    audit.ActionSettled,
		UserID:    req.UserID,
		Amount:    info.Amount,
	})
	return ConfirmResult{
		Outcome:   OutcomeSucceeded,
		ReturnURL: info.ReturnURL,
		Receipt:   receipt,
		Reference: reference,
	}, nil
}

// settle applies the money movement. A destination at this bank settles as
// one internal two-leg transfer; anything else debits locally and forwards
// the transfer through the central relay, compensating the debit if the
// forward leg fails.
func (s *BankService) settle(ctx context.Context, account ledger.Account, info payment.Info, reference string) error {
	instruction := GlobalTransferRequest{
		SourceAccountID:                account.ID,
		DestinationBankName:            info.DestinationBankName,
		DestinationBankCountry:         info.DestinationBankCountry,
		DestinationBankSwiftCode:       info.DestinationBankSwiftCode,
		DestinationBankAccountUniqueID: info.DestinationBankAccountUniqueID,
		Amount:                         info.Amount,
		Description:                    info.Description,
		RecipientName:                  info.RecipientName,
	}

	if instruction.DestinationBankSwiftCode == s.identity.SwiftCode {
		err := s.ledger.TransferInternal(ctx,
			instruction.SourceAccountID,
			instruction.DestinationBankAccountUniqueID,
			instruction.Amount,
			instruction.Description,
			reference)
		return translateLedgerErr(err)
	}

	debit := ledger.Transfer{
		AccountID:       instruction.SourceAccountID,
		Amount:          -instruction.Amount,
		Description:     instruction.Description,
		Counterparty:    instruction.DestinationBankAccountUniqueID,
		ReferenceNumber: reference,
	}
	if err := s.ledger.CreateTransfer(ctx, debit); err != nil {
		return translateLedgerErr(err)
	}

	if err := s.forward(ctx, info); err != nil {
		// Saga compensation: undo the debit under the same reference.
		credit := debit
		credit.ID = ""
		credit.Amount = instruction.Amount
		if compErr := s.ledger.CreateTransfer(ctx, credit); compErr != nil {
			s.logger.ErrorContext(ctx, "compensation failed, ledger out of balance",
				"reference", reference,
				"error", compErr,
			)
		} else {
			s.emitAudit(ctx, audit.Event{
				Reference: reference,
				Action:    audit.ActionCompensated,
				Amount:    instruction.Amount,
			})
		}
		return err
	}
	return nil
}

func (s *BankService) forward(ctx context.Context, info payment.Info) error {
	proof, err := payment.GenerateProofEnvelope(info, s.centralKey, s.privateKey, s.identity)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.sender.Send(ctx, s.relayURL, proof)
	s.metrics.ObserveForwardLatency(time.Since(start))
	return err
}

// ReceiveCredit applies an inbound credit relayed by the central API to the
// destination account at this bank.
func (s *BankService) ReceiveCredit(ctx context.Context, encoded string) error {
	ctx, span := s.tracer.Start(ctx, "transfer.ReceiveCredit")
	defer span.End()

	info, err := payment.Decode(encoded, s.privateKey, s.centralKey)
	if err != nil {
		s.metrics.IncEnvelopeDecoded("rejected")
		return dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	s.metrics.IncEnvelopeDecoded("ok")

	account, err := s.ledger.GetAccountByUniqueID(ctx, info.DestinationBankAccountUniqueID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "destination account unknown")
	}
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "resolve destination account", err)
	}

	payload, perr := decodedEnvelopeJSON(encoded)
	if perr != nil {
		return perr
	}
	reference := envelope.Hash(payload)

	// The reference doubles as the replay lock for this leg: a relayed
	// envelope settles at most once, no matter how often it is re-posted.
	existing, err := s.ledger.ListTransfersByReference(ctx, reference)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "check transfer reference", err)
	}
	if len(existing) > 0 {
		return dErrors.New(dErrors.CodeStateTampered, "transfer already settled")
	}

	err = s.ledger.CreateTransfer(ctx, ledger.Transfer{
		AccountID:       account.ID,
		Amount:          info.Amount,
		Description:     info.Description,
		ReferenceNumber: reference,
	})
	if err != nil {
		return translateLedgerErr(err)
	}

	s.emitAudit(ctx, audit.Event{
		Reference: reference,
		Action:    audit.ActionSettled,
		Amount:    info.Amount,
	})
	return nil
}

func (s *BankService) reopen(ctx context.Context, statePayload []byte) (payment.Info, error) {
	hash := envelope.Hash(statePayload)
	stored, err := s.states.Get(ctx, hash)
	if err != nil {
		return payment.Info{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	if !stored.Validate(hash, requestcontext.Now(ctx), s.stateTTL) {
		return payment.Info{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	return payment.Decode(encodeEnvelopeJSON(statePayload), s.privateKey, s.centralKey)
}

func (s *BankService) remainingTTL(ctx context.Context, stored state.SignedState) time.Duration {
	remaining := s.stateTTL - requestcontext.Now(ctx).Sub(stored.CreatedAt)
	if remaining <= 0 {
		remaining = time.Second
	}
	return remaining
}

func (s *BankService) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"reference", event.Reference,
			"action", string(event.Action),
			"error", err,
		)
	}
}

func translateLedgerErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return dErrors.New(dErrors.CodeInsufficientFunds, "insufficient funds")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "account unknown")
	default:
		return dErrors.Wrap(dErrors.CodeInternal, "ledger operation", err)
	}
}

func outcomeFor(err error) Outcome {
	if dErrors.Is(err, dErrors.CodeInsufficientFunds) {
		return OutcomeInsufficientFunds
	}
	return OutcomeFailed
}
