package handler

import (
	"net/http"

	"github.com/iho/peerpay/internal/adapter/http/dto"
	"github.com/iho/peerpay/internal/adapter/http/middleware"
	"github.com/iho/peerpay/internal/infrastructure/metrics"
	"github.com/iho/peerpay/internal/usecase"
)

// NotificationHandler handles notification polling.
type NotificationHandler struct {
	notificationUC *usecase.NotificationUseCase
	metrics        *metrics.Metrics
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notificationUC *usecase.NotificationUseCase, m *metrics.Metrics) *NotificationHandler {
	return &NotificationHandler{notificationUC: notificationUC, metrics: m}
}

// Poll returns everything that changed since the caller's previous poll
// and acknowledges it. Polling twice without intervening transfers
// returns empty deltas.
func (h *NotificationHandler) Poll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "")
		return
	}

	result, err := h.notificationUC.Reconcile(r.Context(), claims.AccountID)
	if err != nil {
		writeDomainError(w, "notification poll failed", err)
		return
	}

	if h.metrics != nil {
		h.metrics.NotificationPolls.Inc()
		h.metrics.NotificationDeltas.WithLabelValues("transaction").Add(float64(len(result.NewTransactions)))
		h.metrics.NotificationDeltas.WithLabelValues("edit").Add(float64(len(result.Edits)))
	}

	writeJSON(w, http.StatusOK, dto.NotificationsFromResult(result))
}
