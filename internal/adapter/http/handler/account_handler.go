package handler

import (
	"net/http"

	"github.com/iho/peerpay/internal/adapter/http/dto"
	"github.com/iho/peerpay/internal/adapter/http/middleware"
	"github.com/iho/peerpay/internal/usecase"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC *usecase.AccountUseCase
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC *usecase.AccountUseCase) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Me returns the authenticated account with its current balance.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	account, err := h.accountUC.Get(r.Context(), claims.AccountID)
	if err != nil {
		writeDomainError(w, "failed to load account", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// History returns the authenticated account's transactions, newest first.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	log, err := h.accountUC.History(r.Context(), claims.AccountID)
	if err != nil {
		writeDomainError(w, "failed to load history", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionsFromDomain(log))
}

// Directory lists other accounts as transfer recipients.
func (h *AccountHandler) Directory(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.accountUC.Directory(r.Context(), claims.AccountID, limit, offset)
	if err != nil {
		writeDomainError(w, "failed to list accounts", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
