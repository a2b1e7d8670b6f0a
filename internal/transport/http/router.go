// Package httptransport assembles the chi routers for the two processes.
// Handlers stay thin; all protocol logic lives in the service packages.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	directoryHandler "paygate/internal/directory/handler"
	ledgerHandler "paygate/internal/ledger/handler"
	"paygate/internal/platform/middleware"
	transferHandler "paygate/internal/transfer/handler"
	"paygate/pkg/platform/httputil"
)

const requestTimeout = 30 * time.Second

// CentralDeps carries everything the central API router mounts.
type CentralDeps struct {
	Payments  *transferHandler.Central
	Directory *directoryHandler.Handler
	Logger    *slog.Logger
	Health    func() error
}

// NewCentralRouter builds the central API router: the payment protocol
// endpoints plus the public bank directory.
func NewCentralRouter(deps CentralDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Payments.Register(r)
	deps.Directory.Register(r)
	return r
}

// BankDeps carries everything a bank process router mounts.
type BankDeps struct {
	Payments  *transferHandler.Bank
	Ledger    *ledgerHandler.Handler
	Validator middleware.JWTValidator
	Logger    *slog.Logger
	Health    func() error
}

// NewBankRouter builds a bank router: unauthenticated protocol endpoints
// for envelopes from the central API, and authenticated endpoints for the
// bank's own users.
func NewBankRouter(deps BankDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/healthz", healthHandler(deps.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	deps.Payments.Register(r)

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.RequireAuth(deps.Validator, deps.Logger))
		deps.Payments.RegisterAuthenticated(auth)
		auth.Group(func(jsonAPI chi.Router) {
			jsonAPI.Use(middleware.ContentTypeJSON)
			deps.Ledger.Register(jsonAPI)
		})
	})
	return r
}

func healthHandler(check func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
