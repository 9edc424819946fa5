package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
)

// PostgreSQL error codes mapped to domain errors.
const (
	pgErrLockNotAvailable = "55P03"
	pgErrDeadlockDetected = "40P01"
	pgErrUniqueViolation  = "23505"
)

const accountColumns = "id, name, email, hashed_password, balance, transaction_log, last_seen_count, created_at, updated_at"

// AccountRepository implements usecase.AccountRepository. The transaction
// log is stored as a jsonb column on the account row, so balance, log and
// counters always change in one write.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	log, err := marshalLog(account.Log)
	if err != nil {
		return err
	}

	balance, err := decimalToNumeric(account.Balance)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO accounts (id, name, email, hashed_password, balance, transaction_log, last_seen_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		account.ID,
		account.Name,
		account.Email,
		account.HashedPassword,
		balance,
		log,
		account.LastSeenCount,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return domain.ErrEmailTaken
		}

		return err
	}

	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)

	return scanAccount(row)
}

// GetByEmail retrieves an account by email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE lower(email) = lower($1)", email)

	return scanAccount(row)
}

// GetByIDForUpdate retrieves an account with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	row := tx.(*Tx).PgxTx().QueryRow(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 FOR UPDATE", id)

	account, err := scanAccount(row)
	if err != nil {
		return nil, mapLockError(err)
	}

	return account, nil
}

// GetByIDsForUpdate locks multiple accounts. Row locks are taken in id order
// regardless of the order transfers name their parties, so concurrent
// transfers over the same pair cannot deadlock.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	rows, err := tx.(*Tx).PgxTx().Query(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, mapLockError(err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, mapLockError(err)
	}

	return accounts, nil
}

// Persist writes the account's mutable state within the transaction.
func (r *AccountRepository) Persist(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	log, err := marshalLog(account.Log)
	if err != nil {
		return err
	}

	balance, err := decimalToNumeric(account.Balance)
	if err != nil {
		return err
	}

	tag, err := tx.(*Tx).PgxTx().Exec(ctx, `
		UPDATE accounts
		SET balance = $2, transaction_log = $3, last_seen_count = $4, updated_at = $5
		WHERE id = $1`,
		account.ID,
		balance,
		log,
		account.LastSeenCount,
		timeToPgTimestamptz(account.UpdatedAt),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}

// List lists accounts ordered by name, excluding the given id.
func (r *AccountRepository) List(ctx context.Context, excludeID string, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id <> $1 ORDER BY name, id LIMIT $2 OFFSET $3",
		excludeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		balance   pgtype.Numeric
		log       []byte
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&account.ID,
		&account.Name,
		&account.Email,
		&account.HashedPassword,
		&balance,
		&log,
		&account.LastSeenCount,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Balance = numericToDecimal(balance)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updatedAt.Time

	if len(log) > 0 {
		if err := json.Unmarshal(log, &account.Log); err != nil {
			return nil, fmt.Errorf("decode transaction log: %w", err)
		}
	}

	return &account, nil
}

func marshalLog(log domain.TransactionLog) ([]byte, error) {
	if log == nil {
		log = domain.TransactionLog{}
	}

	return json.Marshal(log)
}

// mapLockError translates lock timeouts and deadlocks into the retryable
// contention error.
func mapLockError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrLockNotAvailable, pgErrDeadlockDetected:
			return fmt.Errorf("%w: %s", domain.ErrContention, pgErr.Message)
		}
	}

	return err
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}

	return n, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
