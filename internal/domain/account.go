package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's balance-holding entity. The transaction history is
// embedded in the account itself, so balance, log and notification counters
// always persist together.
type Account struct {
	ID             string
	Name           string
	Email          string
	HashedPassword string
	Balance        decimal.Decimal
	Log            TransactionLog

	// LastSeenCount is how many log entries the client has acknowledged.
	// It never decreases.
	LastSeenCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidateDebit checks that the account can fund a withdrawal of delta.
// A negative delta (an edit that lowers a sent amount) always passes.
func (a *Account) ValidateDebit(delta decimal.Decimal) error {
	if a.Balance.LessThan(delta) {
		return &InsufficientBalanceError{Balance: a.Balance, Required: delta}
	}

	return nil
}

// ApplyTransfer moves delta from this account to the counterparty.
func (a *Account) ApplyTransfer(counterparty *Account, delta decimal.Decimal) {
	a.Balance = a.Balance.Sub(delta)
	counterparty.Balance = counterparty.Balance.Add(delta)
}

// Clone returns a deep copy, including the embedded log.
func (a *Account) Clone() *Account {
	c := *a
	c.Log = a.Log.Clone()

	return &c
}
