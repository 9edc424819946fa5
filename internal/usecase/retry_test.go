package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
)

// countingRetrier re-runs the operation a fixed number of times on
// contention, without backoff.
type countingRetrier struct {
	maxAttempts int
	attempts    int
}

func (r *countingRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < r.maxAttempts; i++ {
		r.attempts++
		err = operation()
		if err == nil || !errors.Is(err, domain.ErrContention) {
			return err
		}
	}

	return err
}

func TestRetryingTransferExecutor_RetriesContention(t *testing.T) {
	accRepo, _, _, uc := newTransferFixture(t)
	seedPair(accRepo, 500, 100)

	failures := 2
	accRepo.GetByIDsForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
		if failures > 0 {
			failures--
			return nil, domain.ErrContention
		}
		accRepo.GetByIDsForUpdateFunc = nil
		return accRepo.GetByIDsForUpdate(ctx, tx, ids)
	}

	retrier := &countingRetrier{maxAttempts: 5}
	exec := usecase.NewRetryingTransferExecutor(uc, retrier)

	result, err := exec.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-b",
		Amount:     decimal.NewFromInt(200),
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if retrier.attempts != 3 {
		t.Errorf("attempts = %d, want 3", retrier.attempts)
	}
	if !result.SenderBalance.Equal(decimal.NewFromInt(300)) {
		t.Errorf("sender balance = %s, want 300", result.SenderBalance)
	}
}

func TestRetryingTransferExecutor_PermanentErrorNotRetried(t *testing.T) {
	accRepo, _, _, uc := newTransferFixture(t)
	seedPair(accRepo, 500, 100)

	retrier := &countingRetrier{maxAttempts: 5}
	exec := usecase.NewRetryingTransferExecutor(uc, retrier)

	_, err := exec.Execute(context.Background(), usecase.TransferInput{
		SenderID:   "acc-a",
		ReceiverID: "acc-a",
		Amount:     decimal.NewFromInt(200),
	})
	if !errors.Is(err, domain.ErrSameAccount) {
		t.Fatalf("expected same account error, got %v", err)
	}
	if retrier.attempts != 1 {
		t.Errorf("attempts = %d, want 1", retrier.attempts)
	}
}
