package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role marks which side of a transfer a record describes.
type Role string

const (
	// RoleSent is the copy held by the account that initiated the transfer.
	RoleSent Role = "sent"

	// RoleReceived is the copy held by the counterparty.
	RoleReceived Role = "received"
)

// EditRecord is one retroactive amendment to a transaction's amount.
// Immutable once appended.
type EditRecord struct {
	PreviousAmount decimal.Decimal `json:"previous_amount"`
	NewAmount      decimal.Decimal `json:"new_amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// TransactionRecord is one account's view of a transfer. Every transfer
// produces two mirrored records sharing the same ID, one per account, and
// the transfer engine keeps their Amount, EditCount and Edits identical.
type TransactionRecord struct {
	ID               string          `json:"id"`
	CounterpartyID   string          `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Amount           decimal.Decimal `json:"amount"`
	Role             Role            `json:"role"`
	Description      string          `json:"description,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	LastModifiedAt   time.Time       `json:"last_modified_at"`
	EditCount        int             `json:"edit_count"`
	Edits            []EditRecord    `json:"edits,omitempty"`

	// SeenEditCount is how many edits the owning account's client has
	// acknowledged. It never decreases.
	SeenEditCount int `json:"seen_edit_count"`
}

// Clone returns a deep copy of the record.
func (r *TransactionRecord) Clone() *TransactionRecord {
	c := *r
	if r.Edits != nil {
		c.Edits = make([]EditRecord, len(r.Edits))
		copy(c.Edits, r.Edits)
	}

	return &c
}

// TransactionLog is an account's ordered transaction history, newest first.
type TransactionLog []*TransactionRecord

// InsertHead prepends a new record.
func (l *TransactionLog) InsertHead(rec *TransactionRecord) {
	*l = append(TransactionLog{rec}, *l...)
}

// FindByID returns the record with the given transaction ID.
func (l TransactionLog) FindByID(id string) (*TransactionRecord, error) {
	for _, rec := range l {
		if rec.ID == id {
			return rec, nil
		}
	}

	return nil, ErrTransactionNotFound
}

// Amend sets a new amount on the identified record, prepending an EditRecord
// computed from the current amount and bumping EditCount. It returns the
// previous amount so the caller can compute the balance delta. No other
// record is touched, and an amend to the same amount still records an edit.
func (l TransactionLog) Amend(id string, newAmount decimal.Decimal, at time.Time) (decimal.Decimal, *TransactionRecord, error) {
	rec, err := l.FindByID(id)
	if err != nil {
		return decimal.Zero, nil, err
	}

	oldAmount := rec.Amount

	rec.Edits = append([]EditRecord{{
		PreviousAmount: oldAmount,
		NewAmount:      newAmount,
		Timestamp:      at,
	}}, rec.Edits...)

	rec.Amount = newAmount
	rec.EditCount++
	rec.LastModifiedAt = at

	return oldAmount, rec, nil
}

// Clone returns a deep copy of the log.
func (l TransactionLog) Clone() TransactionLog {
	if l == nil {
		return nil
	}

	c := make(TransactionLog, len(l))
	for i, rec := range l {
		c[i] = rec.Clone()
	}

	return c
}
