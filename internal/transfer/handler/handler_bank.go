package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paygate/internal/ledger"
	"paygate/internal/payment"
	"paygate/internal/transfer"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// BankService defines the operations the bank payment handler needs.
type BankService interface {
	AcceptProof(ctx context.Context, encoded string) (transfer.Initiation, error)
	ConfirmationData(ctx context.Context, userID string, statePayload []byte) (payment.Info, []ledger.Account, string, error)
	Confirm(ctx context.Context, req transfer.ConfirmRequest) (transfer.ConfirmResult, error)
	ReceiveCredit(ctx context.Context, encoded string) error
}

// Bank wires the bank-side payment endpoints to the bank service.
type Bank struct {
	service  BankService
	validity time.Duration
	logger   *slog.Logger
}

// NewBank constructs the bank payment handler.
func NewBank(service BankService, validity time.Duration, logger *slog.Logger) *Bank {
	return &Bank{service: service, validity: validity, logger: logger}
}

// Register mounts the unauthenticated bank endpoints on the router.
func (h *Bank) Register(r chi.Router) {
	r.Post("/pay", h.HandleAcceptProof)
	r.Post("/transfers/credit", h.HandleReceiveCredit)
}

// RegisterAuthenticated mounts endpoints that require a signed-in user.
func (h *Bank) RegisterAuthenticated(r chi.Router) {
	r.Get("/pay", h.HandleConfirmationData)
	r.Post("/pay/confirm", h.HandleConfirm)
}

// HandleAcceptProof handles POST /pay requests carrying the proof envelope
// forwarded by the central API (AwaitingConfirmation).
func (h *Bank) HandleAcceptProof(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	encoded := r.PostFormValue(transfer.PaymentDataFormKey)
	if encoded == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidEnvelope, "missing payment data"))
		return
	}

	init, err := h.service.AcceptProof(ctx, encoded)
	if err != nil {
		h.logger.WarnContext(ctx, "proof envelope rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	writePaymentCookie(w, init.StatePayload, h.validity)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"dataHash": init.ContentHash,
		"payment":  toPaymentView(init.Info),
	})
}

// HandleConfirmationData handles GET /pay requests: the payment summary
// plus the authenticated user's accounts to pay from.
func (h *Bank) HandleConfirmationData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	payload, err := readPaymentCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info, accounts, dataHash, err := h.service.ConfirmationData(ctx, userID, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	type accountView struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		UniqueID string `json:"uniqueId"`
		Balance  int64  `json:"balance"`
	}
	views := make([]accountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, accountView{ID: a.ID, Name: a.Name, UniqueID: a.UniqueID, Balance: a.Balance})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"dataHash": dataHash,
		"payment":  toPaymentView(info),
		"accounts": views,
	})
}

type confirmRequest struct {
	AccountID string `json:"accountId"`
	DataHash  string `json:"dataHash"`
}

type confirmResponse struct {
	Success      bool   `json:"success"`
	ReturnURL    string `json:"returnUrl,omitempty"`
	Data         string `json:"data,omitempty"`
	Reference    string `json:"reference,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// HandleConfirm handles POST /pay/confirm requests: the user's final
// commitment to settle from a chosen account.
func (h *Bank) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	start := time.Now()

	payload, err := readPaymentCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[confirmRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.AccountID == "" || req.DataHash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "account id and data hash are required"))
		return
	}

	result, err := h.service.Confirm(ctx, transfer.ConfirmRequest{
		UserID:       userID,
		AccountID:    req.AccountID,
		DataHash:     req.DataHash,
		StatePayload: payload,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "payment confirmation failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		// Terminal failures drop the cookie; the user must restart the flow.
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeStateTampered {
			clearPaymentCookie(w)
		}
		// Business rejections are surfaced precisely to the local user
		// so they can correct input. Everything else goes through the
		// shared error writer, which keeps crypto failures opaque.
		switch code {
		case dErrors.CodeInsufficientFunds, dErrors.CodeSameAccount,
			dErrors.CodeForbidden, dErrors.CodeStateTampered:
			var gw dErrors.GatewayError
			msg := "payment rejected"
			if errors.As(err, &gw) {
				msg = gw.Message
			}
			httputil.WriteJSON(w, dErrors.ToHTTPStatus(code), confirmResponse{
				Success:      false,
				ErrorMessage: msg,
			})
		default:
			httputil.WriteError(w, err)
		}
		return
	}

	h.logger.InfoContext(ctx, "payment settled",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID,
		"reference", result.Reference,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	clearPaymentCookie(w)
	httputil.WriteJSON(w, http.StatusOK, confirmResponse{
		Success:   true,
		ReturnURL: result.ReturnURL,
		Data:      result.Receipt,
		Reference: result.Reference,
	})
}

// HandleReceiveCredit handles POST /transfers/credit requests: inbound
// credits relayed by the central API for accounts at this bank.
func (h *Bank) HandleReceiveCredit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	encoded := r.PostFormValue(transfer.PaymentDataFormKey)
	if encoded == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidEnvelope, "missing payment data"))
		return
	}

	if err := h.service.ReceiveCredit(ctx, encoded); err != nil {
		h.logger.ErrorContext(ctx, "inbound credit rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "credited"})
}
