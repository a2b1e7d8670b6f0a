package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paygate/internal/directory"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/requestcontext"
)

// Service defines the directory operations the handler needs.
type Service interface {
	ResolveBank(ctx context.Context, name, swiftCode, country string) (directory.BankEntry, error)
	ResolveBankByID(ctx context.Context, id string) (directory.BankEntry, error)
	ResolveBankByIdentificationNumbers(ctx context.Context, identificationNumbers string) (directory.BankEntry, error)
	ListPaymentCapableBanks(ctx context.Context) ([]directory.BankEntry, error)
}

// Handler wires directory endpoints to the directory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a directory handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/directory/banks", h.HandleListBanks)
	r.Get("/directory/banks/{bankID}", h.HandleBankByID)
	r.Get("/directory/resolve", h.HandleResolve)
}

// bankResponse is the wire view of a directory entry. The public key is
// served so counter-parties can verify the bank's signatures; the private
// half never leaves the bank.
type bankResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	SwiftCode          string `json:"swiftCode"`
	Country            string `json:"country"`
	PublicKeyPEM       string `json:"publicKeyPem,omitempty"`
	PaymentEndpointURL string `json:"paymentEndpointUrl,omitempty"`
}

func toBankResponse(b directory.BankEntry) bankResponse {
	return bankResponse{
		ID:                 b.ID,
		Name:               b.Name,
		SwiftCode:          b.SwiftCode,
		Country:            b.Country,
		PublicKeyPEM:       b.PublicKeyPEM,
		PaymentEndpointURL: b.PaymentEndpointURL,
	}
}

// HandleListBanks handles GET /directory/banks requests. Only banks with a
// registered payment endpoint are listed.
func (h *Handler) HandleListBanks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	banks, err := h.service.ListPaymentCapableBanks(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list banks failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	out := make([]bankResponse, 0, len(banks))
	for _, b := range banks {
		out = append(out, toBankResponse(b))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleBankByID handles GET /directory/banks/{bankID} requests.
func (h *Handler) HandleBankByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	bankID := chi.URLParam(r, "bankID")
	if bankID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "bank id is required"))
		return
	}

	bank, err := h.service.ResolveBankByID(ctx, bankID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBankResponse(bank))
}

// HandleResolve handles GET /directory/resolve requests. Lookup is by
// identification numbers when given, otherwise by fuzzy identity match on
// name, SWIFT code and country.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var (
		bank directory.BankEntry
		err  error
	)
	if idNums := q.Get("identificationNumbers"); idNums != "" {
		bank, err = h.service.ResolveBankByIdentificationNumbers(ctx, idNums)
	} else {
		bank, err = h.service.ResolveBank(ctx, q.Get("name"), q.Get("swiftCode"), q.Get("country"))
	}
	if err != nil {
		h.logger.WarnContext(ctx, "bank resolve failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toBankResponse(bank))
}
