package usecase

import (
	"context"

	"github.com/iho/peerpay/internal/domain"
)

// NotificationUseCase computes what changed in an account's log since the
// client last polled, and advances the stored counters so the same deltas
// are never re-emitted.
type NotificationUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
}

// NewNotificationUseCase creates a new NotificationUseCase.
func NewNotificationUseCase(txManager TransactionManager, accountRepo AccountRepository) *NotificationUseCase {
	return &NotificationUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
	}
}

// EditNotification is one unseen amendment, paired with its record's context.
type EditNotification struct {
	TransactionID    string
	CounterpartyID   string
	CounterpartyName string
	Role             domain.Role
	Edit             domain.EditRecord
}

// ReconcileResult holds the deltas since the last poll, newest first.
type ReconcileResult struct {
	NewTransactions []*domain.TransactionRecord
	Edits           []EditNotification
}

// Reconcile diffs the account's log against its counters under the same
// per-account lock discipline as a transfer, so the snapshot is consistent.
// Calling it again with no intervening transfer returns empty deltas.
func (uc *NotificationUseCase) Reconcile(ctx context.Context, accountID string) (*ReconcileResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}

	currentCount := len(account.Log)
	if unseen := currentCount - account.LastSeenCount; unseen > 0 {
		result.NewTransactions = make([]*domain.TransactionRecord, unseen)
		for i, rec := range account.Log[:unseen] {
			result.NewTransactions[i] = rec.Clone()
		}
	}

	touched := false
	for _, rec := range account.Log {
		unseen := rec.EditCount - rec.SeenEditCount
		if unseen <= 0 {
			continue
		}

		for _, edit := range rec.Edits[:unseen] {
			result.Edits = append(result.Edits, EditNotification{
				TransactionID:    rec.ID,
				CounterpartyID:   rec.CounterpartyID,
				CounterpartyName: rec.CounterpartyName,
				Role:             rec.Role,
				Edit:             edit,
			})
		}

		rec.SeenEditCount = rec.EditCount
		touched = true
	}

	// Counters only advance.
	if currentCount > account.LastSeenCount {
		account.LastSeenCount = currentCount
		touched = true
	}

	if touched {
		if err := uc.accountRepo.Persist(ctx, tx, account); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return result, nil
}
