package transfer

import "paygate/internal/payment"

// FlowState names the stages of a payment flow. Settled and Rejected are
// terminal; the signed state entry is destroyed on entering Settled so a
// replay cannot produce a second credit.
type FlowState string

const (
	StateInitiated             FlowState = "initiated"
	StateAwaitingBankSelection FlowState = "awaiting_bank_selection"
	StateBankSelected          FlowState = "bank_selected"
	StateAwaitingConfirmation  FlowState = "awaiting_confirmation"
	StateSettled               FlowState = "settled"
	StateRejected              FlowState = "rejected"
)

// Outcome is the result of the settlement step.
type Outcome string

const (
	OutcomeSucceeded         Outcome = "Succeeded"
	OutcomeInsufficientFunds Outcome = "InsufficientFunds"
	OutcomeFailed            Outcome = "Failed"
)

// GlobalTransferRequest is the settlement instruction built once the decoded
// payment info and the user's chosen source account are combined. Consumed
// exactly once by the settlement step; never persisted beyond it.
type GlobalTransferRequest struct {
	SourceAccountID                string
	DestinationBankName            string
	DestinationBankCountry         string
	DestinationBankSwiftCode       string
	DestinationBankAccountUniqueID string
	Amount                         int64
	Description                    string
	RecipientName                  string
}

// ConfirmRequest carries the authenticated user's confirmation of an
// in-flight payment.
type ConfirmRequest struct {
	UserID       string
	AccountID    string
	DataHash     string
	StatePayload []byte
}

// ConfirmResult is returned to the user's browser after settlement.
type ConfirmResult struct {
	Outcome   Outcome
	ReturnURL string
	Receipt   string
	Reference string
}

// Initiation is the decoded, sealed result of accepting an inbound payment
// request.
type Initiation struct {
	Info        payment.Info
	ContentHash string
	// StatePayload is the decoded envelope JSON that travels in the
	// PaymentData cookie; it is not re-encrypted.
	StatePayload []byte
}

// ForwardInstruction tells the browser where to POST the proof envelope.
type ForwardInstruction struct {
	URL     string
	FormKey string
	Payload string
}
