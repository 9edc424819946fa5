package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/iho/peerpay/internal/domain"
)

// AccountRepository defines data access for accounts. The embedded
// transaction log and notification counters travel with the account row.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByIDForUpdate acquires an exclusive lock on the account for the
	// duration of the transaction.
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the given accounts. Callers must pass ids in
	// ascending order; locks are taken in that order to prevent deadlock.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	// Persist writes balance, log and counters. Within a transaction, either
	// every Persist takes effect at commit or none do.
	Persist(ctx context.Context, tx Transaction, account *domain.Account) error
	// List returns accounts excluding the given id, ordered by name.
	List(ctx context.Context, excludeID string, limit, offset int) ([]*domain.Account, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents an atomic operation boundary over the store.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates collision-resistant unique IDs.
type IDGenerator interface {
	Generate() string
}

// Clock supplies timestamps. Implementations must be monotonically
// non-decreasing per process so "newest first" ordering stays stable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests. Readings never
// go backwards even if the wall clock steps, so newest-first log ordering
// stays stable.
type SystemClock struct {
	mu   sync.Mutex
	last time.Time
}

func (c *SystemClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	if now.Before(c.last) {
		now = c.last
	}
	c.last = now

	return now
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
