package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/domain"
)

// TransferUseCase executes transfers and retroactive amount edits. It is the
// only writer of account balances and transaction logs.
type TransferUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	clock       Clock
}

// NewTransferUseCase creates a new TransferUseCase.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	clock Clock,
) *TransferUseCase {
	return &TransferUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		clock:       clock,
	}
}

// TransferInput represents a new transfer or, when IsEdit is set, a
// retroactive change of an existing transaction's amount to Amount.
type TransferInput struct {
	SenderID          string
	ReceiverID        string
	Amount            decimal.Decimal
	Description       string
	IsEdit            bool
	EditTransactionID string
}

// TransferResult reports a committed transfer or edit.
type TransferResult struct {
	TransactionID   string
	SenderID        string
	SenderName      string
	ReceiverID      string
	ReceiverName    string
	Amount          decimal.Decimal
	SenderBalance   decimal.Decimal
	ReceiverBalance decimal.Decimal
	Timestamp       time.Time
	Edited          bool
	EditCount       int
}

// Execute validates and applies a transfer or edit across both accounts
// atomically. Any failure before commit leaves both accounts untouched.
func (uc *TransferUseCase) Execute(ctx context.Context, input TransferInput) (*TransferResult, error) {
	// Rejected before any lock is taken.
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	if err := domain.ValidateDescription(input.Description); err != nil {
		return nil, err
	}

	if input.SenderID == input.ReceiverID {
		return nil, domain.ErrSameAccount
	}

	if input.IsEdit && input.EditTransactionID == "" {
		return nil, domain.ErrMissingEditTarget
	}

	// Lock both accounts in ascending id order (deadlock prevention).
	ids := []string{input.SenderID, input.ReceiverID}
	sort.Strings(ids)

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	var sender, receiver *domain.Account
	for _, a := range accounts {
		switch a.ID {
		case input.SenderID:
			sender = a
		case input.ReceiverID:
			receiver = a
		}
	}

	if sender == nil || receiver == nil {
		return nil, domain.ErrAccountNotFound
	}

	now := uc.clock.Now()

	var result *TransferResult
	if input.IsEdit {
		result, err = uc.applyEdit(sender, receiver, input, now)
	} else {
		result, err = uc.applyTransfer(sender, receiver, input, now)
	}
	if err != nil {
		return nil, err
	}

	sender.UpdatedAt = now
	receiver.UpdatedAt = now

	if err := uc.accountRepo.Persist(ctx, tx, sender); err != nil {
		return nil, err
	}

	if err := uc.accountRepo.Persist(ctx, tx, receiver); err != nil {
		return nil, err
	}

	if err := uc.writeEvents(ctx, tx, sender, receiver, input, result, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result.SenderBalance = sender.Balance
	result.ReceiverBalance = receiver.Balance

	return result, nil
}

// applyTransfer creates the two mirrored records and moves the full amount.
func (uc *TransferUseCase) applyTransfer(sender, receiver *domain.Account, input TransferInput, now time.Time) (*TransferResult, error) {
	if err := sender.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	txID := uc.idGen.Generate()

	sender.Log.InsertHead(&domain.TransactionRecord{
		ID:               txID,
		CounterpartyID:   receiver.ID,
		CounterpartyName: receiver.Name,
		Amount:           input.Amount,
		Role:             domain.RoleSent,
		Description:      input.Description,
		CreatedAt:        now,
		LastModifiedAt:   now,
	})

	receiver.Log.InsertHead(&domain.TransactionRecord{
		ID:               txID,
		CounterpartyID:   sender.ID,
		CounterpartyName: sender.Name,
		Amount:           input.Amount,
		Role:             domain.RoleReceived,
		Description:      input.Description,
		CreatedAt:        now,
		LastModifiedAt:   now,
	})

	sender.ApplyTransfer(receiver, input.Amount)

	return &TransferResult{
		TransactionID: txID,
		SenderID:      sender.ID,
		SenderName:    sender.Name,
		ReceiverID:    receiver.ID,
		ReceiverName:  receiver.Name,
		Amount:        input.Amount,
		Timestamp:     now,
	}, nil
}

// applyEdit amends both mirrored copies and moves only the difference.
func (uc *TransferUseCase) applyEdit(sender, receiver *domain.Account, input TransferInput, now time.Time) (*TransferResult, error) {
	// Both copies must exist; a missing mirror is treated as not found.
	senderRec, err := sender.Log.FindByID(input.EditTransactionID)
	if err != nil {
		return nil, err
	}

	if _, err := receiver.Log.FindByID(input.EditTransactionID); err != nil {
		return nil, err
	}

	if senderRec.Role != domain.RoleSent {
		return nil, domain.ErrForbidden
	}

	delta := input.Amount.Sub(senderRec.Amount)

	// Permits decreasing at zero balance; only blocks added exposure.
	if err := sender.ValidateDebit(delta); err != nil {
		return nil, err
	}

	// Same new amount, same timestamp on both copies keeps the mirrors
	// identical.
	if _, _, err := sender.Log.Amend(input.EditTransactionID, input.Amount, now); err != nil {
		return nil, err
	}

	if _, _, err := receiver.Log.Amend(input.EditTransactionID, input.Amount, now); err != nil {
		return nil, err
	}

	sender.ApplyTransfer(receiver, delta)

	return &TransferResult{
		TransactionID: senderRec.ID,
		SenderID:      sender.ID,
		SenderName:    sender.Name,
		ReceiverID:    receiver.ID,
		ReceiverName:  receiver.Name,
		Amount:        input.Amount,
		Timestamp:     now,
		Edited:        true,
		EditCount:     senderRec.EditCount,
	}, nil
}

// writeEvents records the committed change for the external delivery
// collaborator. Events ride in the same transaction as the balance mutation
// and are published strictly after commit, outside the account locks.
func (uc *TransferUseCase) writeEvents(ctx context.Context, tx Transaction, sender, receiver *domain.Account, input TransferInput, result *TransferResult, now time.Time) error {
	eventType := domain.EventTypePaymentMade
	payload := map[string]any{
		"transaction_id": result.TransactionID,
		"sender_id":      sender.ID,
		"sender_name":    sender.Name,
		"receiver_id":    receiver.ID,
		"receiver_name":  receiver.Name,
		"amount":         result.Amount.String(),
		"event_at":       now.Format(time.RFC3339Nano),
	}

	if input.Description != "" {
		payload["description"] = input.Description
	}

	if result.Edited {
		eventType = domain.EventTypeTransactionEdited
	}

	events := []*domain.OutboxEvent{
		{
			ID:            uc.idGen.Generate(),
			AggregateID:   result.TransactionID,
			AggregateType: domain.AggregateTypeTransaction,
			EventType:     eventType,
			Payload:       payload,
			CreatedAt:     now,
		},
		{
			ID:            uc.idGen.Generate(),
			AggregateID:   sender.ID,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeBalanceChanged,
			Payload: map[string]any{
				"account_id":  sender.ID,
				"new_balance": sender.Balance.String(),
			},
			CreatedAt: now,
		},
		{
			ID:            uc.idGen.Generate(),
			AggregateID:   receiver.ID,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeBalanceChanged,
			Payload: map[string]any{
				"account_id":  receiver.ID,
				"new_balance": receiver.Balance.String(),
			},
			CreatedAt: now,
		},
	}

	for _, event := range events {
		if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
			return err
		}
	}

	return nil
}
