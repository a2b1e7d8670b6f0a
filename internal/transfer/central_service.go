// Package transfer drives the inter-bank payment state machine:
// initiate → select bank → forward proof → confirm → settle. The central
// service runs the merchant-facing half; the bank service runs the
// settlement half.
package transfer

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"paygate/internal/audit"
	"paygate/internal/directory"
	"paygate/internal/envelope"
	"paygate/internal/payment"
	"paygate/internal/state"
	"paygate/internal/transfer/metrics"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/requestcontext"
)

// PaymentDataFormKey is the form field carrying envelopes between parties.
const PaymentDataFormKey = "data"

// Directory is the central service's view of the bank registry.
type Directory interface {
	ResolveBank(ctx context.Context, name, swiftCode, country string) (directory.BankEntry, error)
	ResolveBankByID(ctx context.Context, id string) (directory.BankEntry, error)
	ListPaymentCapableBanks(ctx context.Context) ([]directory.BankEntry, error)
}

// CentralService mediates between merchants and banks. It accepts signed
// merchant envelopes, holds them as signed state while the user picks a
// bank, and forwards proof envelopes to the chosen bank. It also relays
// settled cross-bank transfers from a source bank to the destination bank.
type CentralService struct {
	privateKey  *rsa.PrivateKey
	merchantKey *rsa.PublicKey
	directory   Directory
	states      state.Store
	stateTTL    time.Duration
	sender      EnvelopeSender
	auditor     *audit.Publisher
	metrics     *metrics.Metrics
	logger      *slog.Logger
	tracer      trace.Tracer
}

func NewCentralService(
	privateKey *rsa.PrivateKey,
	merchantKey *rsa.PublicKey,
	dir Directory,
	states state.Store,
	stateTTL time.Duration,
	sender EnvelopeSender,
	auditor *audit.Publisher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *CentralService {
	return &CentralService{
		privateKey:  privateKey,
		merchantKey: merchantKey,
		directory:   dir,
		states:      states,
		stateTTL:    stateTTL,
		sender:      sender,
		auditor:     auditor,
		metrics:     m,
		logger:      logger,
		tracer:      otel.Tracer("paygate/transfer"),
	}
}

// Initiate accepts the merchant's base64 envelope, verifies and decodes it,
// and seals the decoded request as signed state. The returned StatePayload
// travels in the PaymentData cookie; the content hash is the flow's
// reference from here on (Initiated → AwaitingBankSelection).
func (s *CentralService) Initiate(ctx context.Context, encoded string) (Initiation, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.Initiate")
	defer span.End()

	info, err := payment.Decode(encoded, s.privateKey, s.merchantKey)
	if err != nil {
		s.metrics.IncEnvelopeDecoded("rejected")
		s.logger.WarnContext(ctx, "payment envelope rejected",
			"request_id", requestcontext.RequestID(ctx),
		)
		return Initiation{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	s.metrics.IncEnvelopeDecoded("ok")

	// The cookie carries the decoded envelope JSON, not the base64 wrapper,
	// so later steps parse it without another decode round.
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

// BankChoices reparses the in-flight payment and lists the banks the user
// may pay through (AwaitingBankSelection).
func (s *CentralService) BankChoices(ctx context.Context, statePayload []byte) (payment.Info, []directory.BankEntry, error) {
	info, err := s.reopen(ctx, statePayload)
	if err != nil {
		return payment.Info{}, nil, err
	}
	banks, err := s.directory.ListPaymentCapableBanks(ctx)
	if err != nil {
		return payment.Info{}, nil, err
	}
	return info, banks, nil
}

// SelectBank resolves the chosen bank, re-seals the payment as a proof
// envelope toward that bank and returns the post-redirect instruction
// (BankSelected → AwaitingConfirmation). Re-delivery with the same content
// hash is safe: nothing is charged until the user confirms at their bank.
func (s *CentralService) SelectBank(ctx context.Context, statePayload []byte, bankID string) (ForwardInstruction, error) {
	ctx, span := s.tracer.Start(ctx, "transfer.SelectBank")
	defer span.End()

	info, err := s.reopen(ctx, statePayload)
	if err != nil {
		return ForwardInstruction{}, err
	}

	bank, err := s.directory.ResolveBankByID(ctx, bankID)
	if err != nil {
		return ForwardInstruction{}, err
	}
	if !bank.SupportsPayments() || bank.PublicKeyPEM == "" {
		return ForwardInstruction{}, dErrors.New(dErrors.CodeUnknownBank, "bank not found")
	}
	bankKey, err := envelope.ParsePublicKey([]byte(bank.PublicKeyPEM))
	if err != nil {
		return ForwardInstruction{}, dErrors.New(dErrors.CodeInternal, "bank key unreadable")
	}

	proof, err := payment.GenerateProofEnvelope(info, bankKey, s.privateKey, payment.BankIdentity{})
	if err != nil {
		return ForwardInstruction{}, err
	}

	s.emitAudit(ctx, audit.Event{
		Reference: envelope.Hash(statePayload),
		Action:    audit.ActionProofForwarded,
		Reason:    bank.ID,
	})
	return ForwardInstruction{
		URL:     bank.PaymentEndpointURL,
		FormKey: PaymentDataFormKey,
		Payload: proof,
	}, nil
}

// RelayTransfer accepts a settled cross-bank transfer from a source bank and
// delivers it to the destination bank. The sender's signature is verified
// against its registered directory key before anything is trusted.
func (s *CentralService) RelayTransfer(ctx context.Context, encoded string) error {
	ctx, span := s.tracer.Start(ctx, "transfer.RelayTransfer")
	defer span.End()

	proof, err := payment.DecodeProofEnvelope(encoded)
	if err != nil {
		return err
	}

	sender, err := s.directory.ResolveBank(ctx, proof.BankName, proof.BankSwiftCode, proof.BankCountry)
	if err != nil {
		return err
	}
	senderKey, err := envelope.ParsePublicKey([]byte(sender.PublicKeyPEM))
	if err != nil {
		return dErrors.New(dErrors.CodeCryptoFailure, "crypto failure")
	}
	info, err := proof.Open(s.privateKey, senderKey)
	if err != nil {
		return err
	}

	dest, err := s.directory.ResolveBank(ctx,
		info.DestinationBankName, info.DestinationBankSwiftCode, info.DestinationBankCountry)
	if err != nil {
		return err
	}
	if !dest.SupportsPayments() {
		return dErrors.New(dErrors.CodeUnknownBank, "bank not found")
	}
	destKey, err := envelope.ParsePublicKey([]byte(dest.PublicKeyPEM))
	if err != nil {
		return dErrors.New(dErrors.CodeInternal, "bank key unreadable")
	}

	forwarded, err := payment.Encode(info, s.privateKey, destKey)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.sender.Send(ctx, dest.PaymentEndpointURL, forwarded)
	s.metrics.ObserveForwardLatency(time.Since(start))
	return err
}

// reopen validates the signed state for a payload and decodes the payment
// info it carries. Expired or unknown state is tampered state as far as
// callers are concerned.
func (s *CentralService) reopen(ctx context.Context, statePayload []byte) (payment.Info, error) {
	hash := envelope.Hash(statePayload)
	stored, err := s.states.Get(ctx, hash)
	if err != nil {
		return payment.Info{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}
	if !stored.Validate(hash, requestcontext.Now(ctx), s.stateTTL) {
		return payment.Info{}, dErrors.New(dErrors.CodeStateTampered, "payment state invalid")
	}

	var env payment.Envelope
	if err := json.Unmarshal(statePayload, &env); err != nil {
		return payment.Info{}, dErrors.New(dErrors.CodeInvalidEnvelope, "invalid payment envelope")
	}
	info, err := payment.Decode(encodeEnvelopeJSON(statePayload), s.privateKey, s.merchantKey)
	if err != nil {
		return payment.Info{}, err
	}
	return info, nil
}

func (s *CentralService) emitAudit(ctx context.Context, event audit.Event) {
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
