package dto

import (
	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/usecase"
)

// SignupRequest represents a request to register an account.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *SignupRequest) ToUseCaseInput() usecase.SignupInput {
	return usecase.SignupInput{
		Name:     r.Name,
		Email:    r.Email,
		Password: r.Password,
	}
}

// SigninRequest represents a request to authenticate.
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ToUseCaseInput converts to use case input.
func (r *SigninRequest) ToUseCaseInput() usecase.AuthenticateInput {
	return usecase.AuthenticateInput{
		Email:    r.Email,
		Password: r.Password,
	}
}

// TransferRequest represents a request to send money or amend a past
// transfer. When EditTransactionID is set the request is an edit and
// ReceiverID names the original receiver.
type TransferRequest struct {
	ReceiverID        string          `json:"receiver_id"`
	Amount            decimal.Decimal `json:"amount"`
	Description       string          `json:"description,omitempty"`
	EditTransactionID string          `json:"edit_transaction_id,omitempty"`
}

// ToUseCaseInput converts to use case input. The sender comes from the
// authenticated context, not the request body.
func (r *TransferRequest) ToUseCaseInput(senderID string) usecase.TransferInput {
	return usecase.TransferInput{
		SenderID:          senderID,
		ReceiverID:        r.ReceiverID,
		Amount:            r.Amount,
		Description:       r.Description,
		IsEdit:            r.EditTransactionID != "",
		EditTransactionID: r.EditTransactionID,
	}
}
