package usecase

import "context"

// Retrier retries an operation that failed on transient contention.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// RetryingTransferExecutor wraps transfer execution with contention
// retries. A transfer that keeps losing the lock race surfaces the
// contention error only after the retrier gives up.
type RetryingTransferExecutor struct {
	uc      *TransferUseCase
	retrier Retrier
}

// NewRetryingTransferExecutor creates a new RetryingTransferExecutor.
func NewRetryingTransferExecutor(uc *TransferUseCase, retrier Retrier) *RetryingTransferExecutor {
	return &RetryingTransferExecutor{uc: uc, retrier: retrier}
}

// Execute runs the transfer, retrying on contention.
func (e *RetryingTransferExecutor) Execute(ctx context.Context, input TransferInput) (*TransferResult, error) {
	var result *TransferResult
	err := e.retrier.Retry(ctx, func() error {
		res, execErr := e.uc.Execute(ctx, input)
		if execErr != nil {
			return execErr
		}
		result = res

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
