package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
)

// AccountResponse represents the caller's own account in API responses.
type AccountResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// AccountFromDomain converts a domain account to a response. The password
// hash and the embedded log never leave through this shape.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Email:     a.Email,
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
}

// AuthResponse carries a bearer token alongside the account it names.
type AuthResponse struct {
	Token   string           `json:"token"`
	Account *AccountResponse `json:"account"`
}

// TransferResponse represents a committed transfer or edit.
type TransferResponse struct {
	TransactionID   string          `json:"transaction_id"`
	SenderID        string          `json:"sender_id"`
	SenderName      string          `json:"sender_name"`
	ReceiverID      string          `json:"receiver_id"`
	ReceiverName    string          `json:"receiver_name"`
	Amount          decimal.Decimal `json:"amount"`
	SenderBalance   decimal.Decimal `json:"sender_balance"`
	Timestamp       time.Time       `json:"timestamp"`
	Edited          bool            `json:"edited"`
	EditCount       int             `json:"edit_count,omitempty"`
}

// TransferFromResult converts a use case result to a response. The
// receiver's balance stays private.
func TransferFromResult(res *usecase.TransferResult) *TransferResponse {
	return &TransferResponse{
		TransactionID: res.TransactionID,
		SenderID:      res.SenderID,
		SenderName:    res.SenderName,
		ReceiverID:    res.ReceiverID,
		ReceiverName:  res.ReceiverName,
		Amount:        res.Amount,
		SenderBalance: res.SenderBalance,
		Timestamp:     res.Timestamp,
		Edited:        res.Edited,
		EditCount:     res.EditCount,
	}
}

// EditResponse represents one amendment to a transaction.
type EditResponse struct {
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// TransactionResponse represents one entry of an account's history.
type TransactionResponse struct {
	ID               string          `json:"id"`
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
	Role             domain.Role     `json:"role"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	LastModifiedAt   time.Time       `json:"last_modified_at"`
	EditCount        int             `json:"edit_count"`
	Edits            []EditResponse  `json:"edits,omitempty"`
}

// TransactionFromDomain converts a transaction record to a response.
func TransactionFromDomain(rec *domain.TransactionRecord) *TransactionResponse {
	resp := &TransactionResponse{
		ID:               rec.ID,
		CounterpartyID:   rec.CounterpartyID,
		CounterpartyName: rec.CounterpartyName,
		Amount:           rec.Amount,
		Role:             rec.Role,
		Description:      rec.Description,
		CreatedAt:        rec.CreatedAt,
		LastModifiedAt:   rec.LastModifiedAt,
		EditCount:        rec.EditCount,
	}
	for _, e := range rec.Edits {
		resp.Edits = append(resp.Edits, EditResponse{
			PreviousAmount: e.PreviousAmount,
			NewAmount:      e.NewAmount,
			Timestamp:      e.Timestamp,
		})
	}

	return resp
}

// TransactionsFromDomain converts a log slice, preserving order.
func TransactionsFromDomain(recs []*domain.TransactionRecord) []*TransactionResponse {
	result := make([]*TransactionResponse, len(recs))
	for i, rec := range recs {
		result[i] = TransactionFromDomain(rec)
	}

	return result
}

// EditNotificationResponse represents one unseen amendment to a
// transaction the caller is party to.
type EditNotificationResponse struct {
	TransactionID    string          `json:"transaction_id"`
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Role             domain.Role     `json:"role"`
	PreviousAmount   decimal.Decimal `json:"previous_amount"`
	NewAmount        decimal.Decimal `json:"new_amount"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NotificationsResponse carries everything that changed since the last poll.
type NotificationsResponse struct {
	NewTransactions []*TransactionResponse     `json:"new_transactions"`
	Edits           []EditNotificationResponse `json:"edits"`
}

// NotificationsFromResult converts a reconcile result to a response.
func NotificationsFromResult(res *usecase.ReconcileResult) *NotificationsResponse {
	resp := &NotificationsResponse{
		NewTransactions: TransactionsFromDomain(res.NewTransactions),
		Edits:           make([]EditNotificationResponse, len(res.Edits)),
	}
	for i, e := range res.Edits {
		resp.Edits[i] = EditNotificationResponse{
			TransactionID:    e.TransactionID,
			CounterpartyID:   e.CounterpartyID,
			CounterpartyName: e.CounterpartyName,
			Role:             e.Role,
			PreviousAmount:   e.Edit.PreviousAmount,
			NewAmount:        e.Edit.NewAmount,
			Timestamp:        e.Edit.Timestamp,
		}
	}

	return resp
}

// ErrorResponse represents an error in API responses. Balance and
// Required are set only for insufficient balance rejections.
type ErrorResponse struct {
	Error    string           `json:"error"`
	Message  string           `json:"message,omitempty"`
	Balance  *decimal.Decimal `json:"balance,omitempty"`
	Required *decimal.Decimal `json:"required,omitempty"`
}
