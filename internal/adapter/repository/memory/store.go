// Package memory provides an in-process store with the same locking
// discipline as the SQL store: exclusive per-account locks acquired with a
// bounded wait, and transactional staging so writes apply only at commit.
// It backs single-node deployments and the test suite.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
)

const defaultLockWait = 3 * time.Second

// slot pairs an account with its lock. The semaphore has capacity one;
// holding the token is holding the account's write lock.
type slot struct {
	sem chan struct{}
	acc *domain.Account
}

// Store implements usecase.AccountRepository, usecase.OutboxRepository and
// usecase.TransactionManager over process memory.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*slot
	events   []*domain.OutboxEvent

	lockWait time.Duration

	failMu      sync.Mutex
	failPersist error
}

// NewStore creates a Store. lockWait bounds how long lock acquisition and
// locked reads may block before giving up with a contention error; zero
// selects the default.
func NewStore(lockWait time.Duration) *Store {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}

	return &Store{
		accounts: make(map[string]*slot),
		lockWait: lockWait,
	}
}

// FailPersist makes every subsequent Persist return err until called with
// nil. Test hook for exercising mid-transaction failures.
func (s *Store) FailPersist(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	s.failPersist = err
}

func (s *Store) persistFailure() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	return s.failPersist
}

func (s *Store) slot(id string) (*slot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.accounts[id]
	return sl, ok
}

// acquire takes the account's lock token, waiting at most lockWait.
func (s *Store) acquire(ctx context.Context, sl *slot, id string) error {
	timer := time.NewTimer(s.lockWait)
	defer timer.Stop()

	select {
	case sl.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: account %s", domain.ErrContention, id)
	}
}

func (s *Store) release(sl *slot) {
	<-sl.sem
}

// Begin starts a transaction. Locks are acquired lazily by the ForUpdate
// reads and released when the transaction ends.
func (s *Store) Begin(ctx context.Context) (usecase.Transaction, error) {
	return &Tx{store: s, staged: make(map[string]*domain.Account)}, nil
}

// Tx is a memory transaction. Staged writes become visible atomically at
// Commit; Rollback discards them. Not safe for concurrent use, matching the
// one-goroutine-per-request usage of the SQL transaction.
type Tx struct {
	store  *Store
	held   []*slot
	heldID map[string]bool
	staged map[string]*domain.Account
	events []*domain.OutboxEvent
	done   bool
}

func (t *Tx) holds(id string) bool {
	return t.heldID[id]
}

func (t *Tx) track(sl *slot, id string) {
	if t.heldID == nil {
		t.heldID = make(map[string]bool)
	}
	t.held = append(t.held, sl)
	t.heldID[id] = true
}

// Commit applies every staged write in one critical section, so a reader
// never observes a transfer half-applied.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("%w: transaction finished", domain.ErrStorageUnavailable)
	}

	t.store.mu.Lock()
	for id, acc := range t.staged {
		if sl, ok := t.store.accounts[id]; ok {
			sl.acc = acc
		}
	}
	t.store.events = append(t.store.events, t.events...)
	t.store.mu.Unlock()

	t.finish()

	return nil
}

// Rollback discards staged writes. Calling it after Commit is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}

	t.staged = nil
	t.events = nil
	t.finish()

	return nil
}

func (t *Tx) finish() {
	t.done = true
	for _, sl := range t.held {
		t.store.release(sl)
	}
	t.held = nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	memTx, ok := tx.(*Tx)
	if !ok || memTx.done {
		return nil, fmt.Errorf("%w: invalid transaction", domain.ErrStorageUnavailable)
	}
	return memTx, nil
}

// Create inserts a new account. Email uniqueness is enforced here, matching
// the unique index in the SQL schema.
func (s *Store) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[account.ID]; ok {
		return fmt.Errorf("%w: id %s", domain.ErrStorageUnavailable, account.ID)
	}

	for _, sl := range s.accounts {
		if strings.EqualFold(sl.acc.Email, account.Email) {
			return domain.ErrEmailTaken
		}
	}

	s.accounts[account.ID] = &slot{
		sem: make(chan struct{}, 1),
		acc: account.Clone(),
	}

	return nil
}

// GetByID is a locked read: it waits for any in-flight transfer touching the
// account, bounded by lockWait.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	sl, ok := s.slot(id)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := s.acquire(ctx, sl, id); err != nil {
		return nil, err
	}
	defer s.release(sl)

	s.mu.RLock()
	defer s.mu.RUnlock()

	return sl.acc.Clone(), nil
}

// GetByEmail reads committed state without taking the account lock; commits
// are atomic so the snapshot is always consistent.
func (s *Store) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sl := range s.accounts {
		if strings.EqualFold(sl.acc.Email, email) {
			return sl.acc.Clone(), nil
		}
	}

	return nil, domain.ErrAccountNotFound
}

// GetByIDForUpdate locks the account for the transaction and returns its
// current state.
func (s *Store) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Account, error) {
	accounts, err := s.GetByIDsForUpdate(ctx, tx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrAccountNotFound
	}

	return accounts[0], nil
}

// GetByIDsForUpdate locks the accounts in the order given. Callers pass ids
// in ascending order; two transfers over the same pair then always contend
// on the first account instead of deadlocking. Missing ids are skipped.
func (s *Store) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	memTx, err := asTx(tx)
	if err != nil {
		return nil, err
	}

	var accounts []*domain.Account
	for _, id := range ids {
		sl, ok := s.slot(id)
		if !ok {
			continue
		}

		if !memTx.holds(id) {
			if err := s.acquire(ctx, sl, id); err != nil {
				return nil, err
			}
			memTx.track(sl, id)
		}

		if staged, ok := memTx.staged[id]; ok {
			accounts = append(accounts, staged.Clone())
			continue
		}

		s.mu.RLock()
		accounts = append(accounts, sl.acc.Clone())
		s.mu.RUnlock()
	}

	return accounts, nil
}

// Persist stages the account's new state. The caller must hold the
// account's lock through the same transaction.
func (s *Store) Persist(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	if err := s.persistFailure(); err != nil {
		return err
	}

	memTx, err := asTx(tx)
	if err != nil {
		return err
	}

	if _, ok := s.slot(account.ID); !ok {
		return domain.ErrAccountNotFound
	}

	if !memTx.holds(account.ID) {
		return fmt.Errorf("%w: persist without lock on account %s", domain.ErrStorageUnavailable, account.ID)
	}

	memTx.staged[account.ID] = account.Clone()

	return nil
}

// List returns accounts ordered by name, excluding the given id.
func (s *Store) List(ctx context.Context, excludeID string, limit, offset int) ([]*domain.Account, error) {
	s.mu.RLock()
	var accounts []*domain.Account
	for _, sl := range s.accounts {
		if sl.acc.ID != excludeID {
			accounts = append(accounts, sl.acc.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Name != accounts[j].Name {
			return accounts[i].Name < accounts[j].Name
		}
		return accounts[i].ID < accounts[j].ID
	})

	if offset >= len(accounts) {
		return nil, nil
	}

	end := offset + limit
	if end > len(accounts) {
		end = len(accounts)
	}

	return accounts[offset:end], nil
}

// OutboxRepo implements usecase.OutboxRepository over the same store, so
// events and account writes share one transaction.
type OutboxRepo struct {
	store *Store
}

// Outbox returns the store's outbox repository.
func (s *Store) Outbox() *OutboxRepo {
	return &OutboxRepo{store: s}
}

// Create stages the event; it becomes visible when the transaction commits.
func (o *OutboxRepo) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	memTx, err := asTx(tx)
	if err != nil {
		return err
	}

	memTx.events = append(memTx.events, event)

	return nil
}

// GetUnpublished returns committed events awaiting delivery, oldest first.
func (o *OutboxRepo) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	o.store.mu.RLock()
	defer o.store.mu.RUnlock()

	var out []*domain.OutboxEvent
	for _, e := range o.store.events {
		if e.Published {
			continue
		}
		copied := *e
		out = append(out, &copied)
		if len(out) == limit {
			break
		}
	}

	return out, nil
}

// MarkPublished flags an event as delivered.
func (o *OutboxRepo) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	for _, e := range o.store.events {
		if e.ID == id {
			e.Published = true
			at := publishedAt
			e.PublishedAt = &at
			return nil
		}
	}

	return fmt.Errorf("%w: event %s", domain.ErrStorageUnavailable, id)
}

// DeletePublished drops delivered events created before the cutoff.
func (o *OutboxRepo) DeletePublished(ctx context.Context, before time.Time) error {
	o.store.mu.Lock()
	defer o.store.mu.Unlock()

	kept := o.store.events[:0]
	for _, e := range o.store.events {
		if !e.Published || !e.CreatedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	o.store.events = kept

	return nil
}
