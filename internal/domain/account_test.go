package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     decimal.Decimal
		delta       decimal.Decimal
		expectError bool
	}{
		{
			name:        "sufficient balance",
			balance:     decimal.NewFromInt(500),
			delta:       decimal.NewFromInt(200),
			expectError: false,
		},
		{
			name:        "exact balance",
			balance:     decimal.NewFromInt(200),
			delta:       decimal.NewFromInt(200),
			expectError: false,
		},
		{
			name:        "insufficient balance",
			balance:     decimal.NewFromInt(100),
			delta:       decimal.NewFromInt(200),
			expectError: true,
		},
		{
			name:        "negative delta at zero balance",
			balance:     decimal.Zero,
			delta:       decimal.NewFromInt(-50),
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Account{Balance: tt.balance}

			err := a.ValidateDebit(tt.delta)

			if tt.expectError && !errors.Is(err, ErrInsufficientBalance) {
				t.Errorf("expected ErrInsufficientBalance, got %v", err)
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestInsufficientBalanceError_Detail(t *testing.T) {
	a := &Account{Balance: decimal.NewFromInt(350)}

	err := a.ValidateDebit(decimal.NewFromInt(450))

	var ibe *InsufficientBalanceError
	if !errors.As(err, &ibe) {
		t.Fatalf("expected InsufficientBalanceError, got %T", err)
	}

	if !ibe.Balance.Equal(decimal.NewFromInt(350)) {
		t.Errorf("expected balance 350, got %s", ibe.Balance)
	}
	if !ibe.Required.Equal(decimal.NewFromInt(450)) {
		t.Errorf("expected required 450, got %s", ibe.Required)
	}
}

func TestAccount_ApplyTransfer(t *testing.T) {
	sender := &Account{Balance: decimal.NewFromInt(500)}
	receiver := &Account{Balance: decimal.NewFromInt(100)}

	sender.ApplyTransfer(receiver, decimal.NewFromInt(200))

	if !sender.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected sender balance 300, got %s", sender.Balance)
	}
	if !receiver.Balance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected receiver balance 300, got %s", receiver.Balance)
	}

	// A negative delta flows the other way (edit decrease).
	sender.ApplyTransfer(receiver, decimal.NewFromInt(-50))

	if !sender.Balance.Equal(decimal.NewFromInt(350)) {
		t.Errorf("expected sender balance 350, got %s", sender.Balance)
	}
	if !receiver.Balance.Equal(decimal.NewFromInt(250)) {
		t.Errorf("expected receiver balance 250, got %s", receiver.Balance)
	}
}

func TestAccount_Clone(t *testing.T) {
	a := &Account{
		ID:      "acc-1",
		Balance: decimal.NewFromInt(100),
		Log: TransactionLog{
			{ID: "tx-1", Amount: decimal.NewFromInt(10)},
		},
	}

	c := a.Clone()
	c.Balance = decimal.NewFromInt(999)
	c.Log[0].Amount = decimal.NewFromInt(999)

	if !a.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("clone shares balance with original")
	}
	if !a.Log[0].Amount.Equal(decimal.NewFromInt(10)) {
		t.Errorf("clone shares log with original")
	}
}
