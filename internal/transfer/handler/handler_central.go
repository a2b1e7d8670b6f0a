package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"paygate/internal/directory"
	"paygate/internal/payment"
	"paygate/internal/transfer"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// CentralService defines the operations the central payment handler needs.
type CentralService interface {
	Initiate(ctx context.Context, encoded string) (transfer.Initiation, error)
	BankChoices(ctx context.Context, statePayload []byte) (payment.Info, []directory.BankEntry, error)
	SelectBank(ctx context.Context, statePayload []byte, bankID string) (transfer.ForwardInstruction, error)
	RelayTransfer(ctx context.Context, encoded string) error
}

// Central wires the central payment endpoints to the central service.
type Central struct {
	service  CentralService
	validity time.Duration
	logger   *slog.Logger
}

// NewCentral constructs the central payment handler.
func NewCentral(service CentralService, validity time.Duration, logger *slog.Logger) *Central {
	return &Central{service: service, validity: validity, logger: logger}
}

// Register mounts central payment endpoints on the router.
func (h *Central) Register(r chi.Router) {
	r.Post("/pay", h.HandleInitiate)
	r.Get("/pay", h.HandleBankChoices)
	r.Post("/pay/continue", h.HandleSelectBank)
	r.Post("/transfers/receive", h.HandleRelay)
}

type paymentView struct {
	Amount        int64  `json:"amount"`
	Description   string `json:"description"`
	RecipientName string `json:"recipientName"`
	BankName      string `json:"destinationBankName"`
	BankCountry   string `json:"destinationBankCountry"`
	BankSwiftCode string `json:"destinationBankSwiftCode"`
}

func toPaymentView(info payment.Info) paymentView {
	return paymentView{
		Amount:        info.Amount,
		Description:   info.Description,
		RecipientName: info.RecipientName,
		BankName:      info.DestinationBankName,
		BankCountry:   info.DestinationBankCountry,
		BankSwiftCode: info.DestinationBankSwiftCode,
	}
}

// HandleInitiate handles POST /pay requests from merchants. The envelope
// arrives in the "data" form field; the decoded payload is sealed server
// side and echoed into the PaymentData cookie.
func (h *Central) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	encoded := r.PostFormValue(transfer.PaymentDataFormKey)
	if encoded == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidEnvelope, "missing payment data"))
		return
	}

	init, err := h.service.Initiate(ctx, encoded)
	if err != nil {
		h.logger.WarnContext(ctx, "payment initiation rejected",
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

// HandleBankChoices handles GET /pay requests: the payment summary plus the
// banks the user may settle from.
func (h *Central) HandleBankChoices(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := readPaymentCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	info, banks, err := h.service.BankChoices(ctx, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	type bankChoice struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Country string `json:"country"`
	}
	choices := make([]bankChoice, 0, len(banks))
	for _, b := range banks {
		choices = append(choices, bankChoice{ID: b.ID, Name: b.Name, Country: b.Country})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"payment": toPaymentView(info),
		"banks":   choices,
	})
}

type selectBankRequest struct {
	BankID string `json:"bankId"`
}

// HandleSelectBank handles POST /pay/continue requests. The response tells
// the browser where to POST the re-encrypted proof envelope
// (BankSelected).
func (h *Central) HandleSelectBank(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := readPaymentCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeJSON[selectBankRequest](w, r, h.logger)
	if !ok {
		return
	}
	if req.BankID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "bank id is required"))
		return
	}

	instr, err := h.service.SelectBank(ctx, payload, req.BankID)
	if err != nil {
		h.logger.WarnContext(ctx, "bank selection failed",
			"request_id", requestcontext.RequestID(ctx),
			"bank_id", req.BankID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"url":     instr.URL,
		"formKey": instr.FormKey,
		"payload": instr.Payload,
	})
}

// HandleRelay handles POST /transfers/receive requests: proof envelopes
// from source banks that the central API verifies, re-encrypts and forwards
// to the destination bank.
func (h *Central) HandleRelay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	encoded := r.PostFormValue(transfer.PaymentDataFormKey)
	if encoded == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidEnvelope, "missing payment data"))
		return
	}

	if err := h.service.RelayTransfer(ctx, encoded); err != nil {
		h.logger.ErrorContext(ctx, "transfer relay failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "forwarded"})
}
