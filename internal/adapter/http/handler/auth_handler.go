package handler

import (
	"encoding/json"
	"net/http"

	"github.com/iho/peerpay/internal/adapter/http/dto"
	"github.com/iho/peerpay/internal/infrastructure/auth"
	"github.com/iho/peerpay/internal/infrastructure/metrics"
	"github.com/iho/peerpay/internal/usecase"
)

// AuthHandler handles signup and signin.
type AuthHandler struct {
	accountUC  *usecase.AccountUseCase
	jwtManager *auth.JWTManager
	metrics    *metrics.Metrics
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accountUC *usecase.AccountUseCase, jwtManager *auth.JWTManager, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{
		accountUC:  accountUC,
		jwtManager: jwtManager,
		metrics:    m,
	}
}

// Signup registers an account and returns a token for it.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req dto.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.Signup(r.Context(), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, "signup failed", err)
		return
	}

	token, err := h.jwtManager.Generate(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.AccountsCreated.Inc()
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token:   token,
		Account: dto.AccountFromDomain(account),
	})
}

// Signin authenticates credentials and returns a token.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req dto.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	account, err := h.accountUC.Authenticate(r.Context(), req.ToUseCaseInput())
	if err != nil {
		if h.metrics != nil {
			h.metrics.SigninAttempts.WithLabelValues("failure").Inc()
		}
		writeDomainError(w, "signin failed", err)

		return
	}

	token, err := h.jwtManager.Generate(account)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate token", err.Error())
		return
	}

	if h.metrics != nil {
		h.metrics.SigninAttempts.WithLabelValues("success").Inc()
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token:   token,
		Account: dto.AccountFromDomain(account),
	})
}
