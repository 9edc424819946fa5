package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
	"github.com/iho/peerpay/internal/usecase/mocks"
)

func newNotificationFixture(t *testing.T) (*mocks.MockAccountRepository, *usecase.TransferUseCase, *usecase.NotificationUseCase) {
	t.Helper()

	accRepo := mocks.NewMockAccountRepository()
	outboxRepo := mocks.NewMockOutboxRepository()
	txMgr := mocks.NewMockTransactionManager()
	idGen := mocks.NewMockIDGenerator()
	clock := mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	transfers := usecase.NewTransferUseCase(txMgr, accRepo, outboxRepo, idGen, clock)
	notifications := usecase.NewNotificationUseCase(txMgr, accRepo)

	return accRepo, transfers, notifications
}

func TestNotificationUseCase_Reconcile(t *testing.T) {
	accRepo, transfers, notifications := newNotificationFixture(t)
	seedPair(accRepo, 500, 100)

	first, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	second, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(30),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	result, err := notifications.Reconcile(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(result.NewTransactions) != 2 {
		t.Fatalf("new transactions = %d, want 2", len(result.NewTransactions))
	}
	// Newest first.
	if result.NewTransactions[0].ID != second.TransactionID {
		t.Error("newest transaction not first")
	}
	if result.NewTransactions[1].ID != first.TransactionID {
		t.Error("older transaction not second")
	}
	if len(result.Edits) != 0 {
		t.Errorf("edits = %d, want 0", len(result.Edits))
	}

	if accRepo.Stored("acc-b").LastSeenCount != 2 {
		t.Errorf("last seen count = %d, want 2", accRepo.Stored("acc-b").LastSeenCount)
	}
}

func TestNotificationUseCase_Reconcile_Idempotent(t *testing.T) {
	accRepo, transfers, notifications := newNotificationFixture(t)
	seedPair(accRepo, 500, 100)

	if _, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(200),
	}); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	if _, err := notifications.Reconcile(context.Background(), "acc-b"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	// Nothing happened in between; the second poll must be empty.
	result, err := notifications.Reconcile(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(result.NewTransactions) != 0 || len(result.Edits) != 0 {
		t.Errorf("repeat reconcile returned deltas: %d new, %d edits",
			len(result.NewTransactions), len(result.Edits))
	}
}

func TestNotificationUseCase_Reconcile_Edits(t *testing.T) {
	accRepo, transfers, notifications := newNotificationFixture(t)
	seedPair(accRepo, 500, 100)

	created, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// Acknowledge the transfer, then amend it.
	if _, err := notifications.Reconcile(context.Background(), "acc-b"); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if _, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:          "acc-a",
		ReceiverID:        "acc-b",
		Amount:            decimal.NewFromInt(150),
		IsEdit:            true,
		EditTransactionID: created.TransactionID,
	}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	result, err := notifications.Reconcile(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(result.NewTransactions) != 0 {
		t.Errorf("new transactions = %d, want 0", len(result.NewTransactions))
	}
	if len(result.Edits) != 1 {
		t.Fatalf("edits = %d, want 1", len(result.Edits))
	}

	edit := result.Edits[0]
	if edit.TransactionID != created.TransactionID {
		t.Error("edit not tied to the amended transaction")
	}
	if edit.Role != domain.RoleReceived {
		t.Errorf("edit role = %q, want %q", edit.Role, domain.RoleReceived)
	}
	if edit.CounterpartyName != "Alice" {
		t.Errorf("edit counterparty = %q, want Alice", edit.CounterpartyName)
	}
	if !edit.Edit.PreviousAmount.Equal(decimal.NewFromInt(200)) {
		t.Errorf("edit previous = %s, want 200", edit.Edit.PreviousAmount)
	}
	if !edit.Edit.NewAmount.Equal(decimal.NewFromInt(150)) {
		t.Errorf("edit new = %s, want 150", edit.Edit.NewAmount)
	}

	// And the edit is acknowledged exactly once.
	repeat, err := notifications.Reconcile(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(repeat.Edits) != 0 {
		t.Errorf("repeat reconcile returned %d edits, want 0", len(repeat.Edits))
	}
}

func TestNotificationUseCase_Reconcile_UnreadTransferWithEdit(t *testing.T) {
	accRepo, transfers, notifications := newNotificationFixture(t)
	seedPair(accRepo, 500, 100)

	created, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("transfer failed: %v", err)
	}

	// Amended before the receiver ever polled: both the new transaction and
	// the edit surface in one reconcile.
	if _, err := transfers.Execute(context.Background(), usecase.TransferInput{
		SenderID:          "acc-a",
		ReceiverID:        "acc-b",
		Amount:            decimal.NewFromInt(150),
		IsEdit:            true,
		EditTransactionID: created.TransactionID,
	}); err != nil {
		t.Fatalf("edit failed: %v", err)
	}

	result, err := notifications.Reconcile(context.Background(), "acc-b")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(result.NewTransactions) != 1 {
		t.Errorf("new transactions = %d, want 1", len(result.NewTransactions))
	}
	if len(result.Edits) != 1 {
		t.Errorf("edits = %d, want 1", len(result.Edits))
	}
}

func TestNotificationUseCase_Reconcile_AccountNotFound(t *testing.T) {
	_, _, notifications := newNotificationFixture(t)

	if _, err := notifications.Reconcile(context.Background(), "acc-missing"); err == nil {
		t.Fatal("expected error for missing account")
	}
}
