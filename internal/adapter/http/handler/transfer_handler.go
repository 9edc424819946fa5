package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/iho/peerpay/internal/adapter/http/dto"
	"github.com/iho/peerpay/internal/adapter/http/middleware"
	"github.com/iho/peerpay/internal/infrastructure/metrics"
	"github.com/iho/peerpay/internal/usecase"
)

// TransferExecutor executes a transfer or edit. Satisfied by the plain
// use case and by its retrying wrapper.
type TransferExecutor interface {
	Execute(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC TransferExecutor
	metrics    *metrics.Metrics
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferExecutor, m *metrics.Metrics) *TransferHandler {
	return &TransferHandler{transferUC: transferUC, metrics: m}
}

// Create executes a transfer, or an edit when edit_transaction_id is set.
// The sender is always the authenticated account.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	var req dto.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	start := time.Now()

	result, err := h.transferUC.Execute(r.Context(), req.ToUseCaseInput(claims.AccountID))
	if err != nil {
		h.recordError(err)
		writeDomainError(w, "transfer failed", err)

		return
	}

	h.recordSuccess(result, time.Since(start))

	writeJSON(w, http.StatusCreated, dto.TransferFromResult(result))
}

func (h *TransferHandler) recordSuccess(result *usecase.TransferResult, elapsed time.Duration) {
	if h.metrics == nil {
		return
	}

	if result.Edited {
		h.metrics.TransfersEdited.Inc()
	} else {
		h.metrics.TransfersExecuted.Inc()
	}

	amount, _ := result.Amount.Float64()
	h.metrics.TransferAmount.Observe(amount)
	h.metrics.TransferDuration.Observe(elapsed.Seconds())
}

func (h *TransferHandler) recordError(err error) {
	if h.metrics == nil {
		return
	}

	h.metrics.TransferErrors.WithLabelValues(errorType(err)).Inc()
}
