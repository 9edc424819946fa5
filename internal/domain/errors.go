package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Account errors
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")

	// Transfer errors
	ErrSameAccount         = errors.New("cannot transfer to same account")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrMissingEditTarget   = errors.New("edit requires a transaction id")
	ErrForbidden           = errors.New("only the original sender may edit a transaction")
	ErrInsufficientBalance = errors.New("insufficient balance")

	// Store errors
	ErrContention         = errors.New("account is locked by another operation")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Authentication errors
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// InsufficientBalanceError carries the detail a caller needs to surface an
// actionable message. It matches ErrInsufficientBalance under errors.Is.
type InsufficientBalanceError struct {
	Balance  decimal.Decimal
	Required decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: have %s, need %s", e.Balance, e.Required)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
