package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"paygate/internal/ledger"
	dErrors "paygate/pkg/domain-errors"
	"paygate/pkg/platform/httputil"
	"paygate/pkg/platform/sentinel"
	"paygate/pkg/requestcontext"
)

const defaultTransferLimit = 10

// Store defines the ledger reads the handler needs.
type Store interface {
	GetAccountByID(ctx context.Context, id string) (ledger.Account, error)
	ListAccountsByUserID(ctx context.Context, userID string) ([]ledger.Account, error)
	ListTransfersByReference(ctx context.Context, reference string) ([]ledger.Transfer, error)
	ListRecentTransfers(ctx context.Context, accountID string, limit int) ([]ledger.Transfer, error)
}

// Handler exposes the authenticated read surface over a user's own ledger.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// New constructs a ledger handler with its dependencies.
func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts ledger endpoints on the router. All routes assume
// RequireAuth already ran.
func (h *Handler) Register(r chi.Router) {
	r.Get("/accounts", h.HandleListAccounts)
	r.Get("/accounts/{accountID}/transfers", h.HandleAccountTransfers)
	r.Get("/transfers", h.HandleTransfersByReference)
}

type accountResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	UniqueID string `json:"uniqueId"`
	Balance  int64  `json:"balance"`
}

type transferResponse struct {
	ID              string `json:"id"`
	AccountID       string `json:"accountId"`
	Amount          int64  `json:"amount"`
	Description     string `json:"description"`
	Counterparty    string `json:"counterparty,omitempty"`
	ReferenceNumber string `json:"referenceNumber,omitempty"`
	MadeOn          string `json:"madeOn"`
}

func toTransferResponses(transfers []ledger.Transfer) []transferResponse {
	out := make([]transferResponse, 0, len(transfers))
	for _, t := range transfers {
		out = append(out, transferResponse{
			ID:              t.ID,
			AccountID:       t.AccountID,
			Amount:          t.Amount,
			Description:     t.Description,
			Counterparty:    t.Counterparty,
			ReferenceNumber: t.ReferenceNumber,
			MadeOn:          t.MadeOn.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return out
}

// HandleListAccounts handles GET /accounts requests for the signed-in user.
func (h *Handler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	accounts, err := h.store.ListAccountsByUserID(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "list accounts failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list accounts", err))
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{ID: a.ID, Name: a.Name, UniqueID: a.UniqueID, Balance: a.Balance})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleAccountTransfers handles GET /accounts/{accountID}/transfers.
// Accounts belonging to other users answer 403 without revealing existence
// details beyond that.
func (h *Handler) HandleAccountTransfers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	accountID := chi.URLParam(r, "accountID")

	account, err := h.store.GetAccountByID(ctx, accountID)
	if errors.Is(err, sentinel.ErrNotFound) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "account not found"))
		return
	}
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "load account", err))
		return
	}
	if account.UserID != userID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "account not available"))
		return
	}

	limit := defaultTransferLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	transfers, err := h.store.ListRecentTransfers(ctx, accountID, limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list transfers", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransferResponses(transfers))
}

// HandleTransfersByReference handles GET /transfers?reference=... and
// filters the result to the user's own accounts.
func (h *Handler) HandleTransfersByReference(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "reference is required"))
		return
	}

	transfers, err := h.store.ListTransfersByReference(ctx, reference)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list transfers", err))
		return
	}

	owned := transfers[:0]
	for _, t := range transfers {
		account, err := h.store.GetAccountByID(ctx, t.AccountID)
		if err != nil {
			continue
		}
		if account.UserID == userID {
			owned = append(owned, t)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, toTransferResponses(owned))
}
