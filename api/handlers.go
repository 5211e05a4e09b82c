/*
handlers.go - HTTP API handlers for the ledger service

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates everything else to the engine and
  the history reconstructor.

ENDPOINTS:
  POST   /api/accounts                  Create account
  GET    /api/accounts/{id}             Get current account state
  POST   /api/accounts/{id}/deposit     Deposit funds
  POST   /api/accounts/{id}/withdraw    Withdraw funds
  POST   /api/accounts/{id}/transfer    Transfer funds to another account
  GET    /api/accounts/{id}/history     Account snapshots, newest first
  GET    /api/accounts/{id}/operations  Audit log, commit-time ascending

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the ledger
  error taxonomy:
  - 400: Invalid input (bad JSON, malformed id, non-positive amount)
  - 404: Account not found
  - 409: Insufficient funds
  - 500: Document store failure

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/logging"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine  *ledger.Engine
	History *ledger.History
	Log     *logging.Logger
}

// NewHandler creates a handler over the given engine and reconstructor.
func NewHandler(engine *ledger.Engine, history *ledger.History, log *logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNop()
	}
	return &Handler{Engine: engine, History: history, Log: log.Named("api")}
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// CreateAccount creates a new account.
// POST /api/accounts
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.CreateAccount(r.Context(), req.InitialBalance)
	if err != nil {
		h.writeLedgerError(w, "Failed to create account", err)
		return
	}

	writeJSON(w, http.StatusCreated, toAccountDTO(account))
}

// GetAccount returns the current state of an account.
// GET /api/accounts/{id}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := h.Engine.GetAccount(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get account", err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// Deposit adds funds to an account.
// POST /api/accounts/{id}/deposit
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.Deposit(r.Context(), id, req.Amount)
	if err != nil {
		h.writeLedgerError(w, "Failed to deposit", err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// Withdraw removes funds from an account.
// POST /api/accounts/{id}/withdraw
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.Withdraw(r.Context(), id, req.Amount)
	if err != nil {
		h.writeLedgerError(w, "Failed to withdraw", err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// Transfer moves funds from this account to a target account. Responds
// with the updated source account.
// POST /api/accounts/{id}/transfer
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	account, err := h.Engine.Transfer(r.Context(), id, req.TargetAccountID, req.Amount)
	if err != nil {
		h.writeLedgerError(w, "Failed to transfer", err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountDTO(account))
}

// =============================================================================
// HISTORY HANDLERS
// =============================================================================

// GetHistory returns every version of an account, newest first.
// GET /api/accounts/{id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	elements, err := h.History.AccountHistory(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get history", err)
		return
	}

	writeJSON(w, http.StatusOK, toHistoryDTOs(elements))
}

// GetOperations returns the audit log for an account.
// GET /api/accounts/{id}/operations
func (h *Handler) GetOperations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ops, err := h.History.AccountOperations(r.Context(), id)
	if err != nil {
		h.writeLedgerError(w, "Failed to get operations", err)
		return
	}

	writeJSON(w, http.StatusOK, toOperationDTOs(ops))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeLedgerError maps the ledger error taxonomy onto HTTP statuses.
func (h *Handler) writeLedgerError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
