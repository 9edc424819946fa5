package usecase

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/peerpay/internal/domain"
)

// AccountUseCase handles signup, authentication and account reads.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	clock       Clock
	cache       Cache
}

// NewAccountUseCase creates a new AccountUseCase. cache may be nil.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator, clock Clock, cache Cache) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		clock:       clock,
		cache:       cache,
	}
}

// SignupInput represents input for creating an account.
type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// Signup creates an account with a hashed password and the starting grant.
func (uc *AccountUseCase) Signup(ctx context.Context, input SignupInput) (*domain.Account, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	if err := domain.ValidateEmail(input.Email); err != nil {
		return nil, err
	}

	if err := domain.ValidatePassword(input.Password); err != nil {
		return nil, err
	}

	if existing, err := uc.accountRepo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	grant, _ := decimal.NewFromString(StartingGrant)
	now := uc.clock.Now()

	account := &domain.Account{
		ID:             uc.idGen.Generate(),
		Name:           input.Name,
		Email:          input.Email,
		HashedPassword: string(hash),
		Balance:        grant,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		// New account invalidates the cached directory.
		_ = uc.cache.Delete(ctx, directoryCacheKey)
	}

	account.HashedPassword = ""

	return account, nil
}

// AuthenticateInput represents signin credentials.
type AuthenticateInput struct {
	Email    string
	Password string
}

// Authenticate verifies credentials and returns the account.
func (uc *AccountUseCase) Authenticate(ctx context.Context, input AuthenticateInput) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.HashedPassword), []byte(input.Password)); err != nil {
		return nil, domain.ErrUnauthorized
	}

	account.HashedPassword = ""

	return account, nil
}

// Get retrieves an account by ID.
func (uc *AccountUseCase) Get(ctx context.Context, id string) (*domain.Account, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.HashedPassword = ""

	return account, nil
}

// History returns an account's transaction log, newest first.
func (uc *AccountUseCase) History(ctx context.Context, id string) (domain.TransactionLog, error) {
	account, err := uc.accountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return account.Log, nil
}

// DirectoryEntry is one recipient in the account directory.
type DirectoryEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

const (
	directoryCacheKey = "directory"
	directoryPageSize = 1000
)

// Directory lists other accounts as transfer recipients. The full listing
// changes only at signup, so it is cached whole and the exclusion and
// pagination are applied per request.
func (uc *AccountUseCase) Directory(ctx context.Context, excludeID string, limit, offset int) ([]DirectoryEntry, error) {
	limit, offset = domain.ValidatePagination(limit, offset)

	entries, ok := uc.directoryFromCache(ctx)
	if !ok {
		var err error
		entries, err = uc.loadDirectory(ctx)
		if err != nil {
			return nil, err
		}

		uc.directoryToCache(ctx, entries)
	}

	filtered := make([]DirectoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.ID != excludeID {
			filtered = append(filtered, e)
		}
	}

	if offset >= len(filtered) {
		return []DirectoryEntry{}, nil
	}

	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}

	return filtered[offset:end], nil
}

// loadDirectory reads every account, paging until the repository returns a
// short page.
func (uc *AccountUseCase) loadDirectory(ctx context.Context) ([]DirectoryEntry, error) {
	entries := []DirectoryEntry{}
	for {
		page, err := uc.accountRepo.List(ctx, "", directoryPageSize, len(entries))
		if err != nil {
			return nil, err
		}

		for _, a := range page {
			entries = append(entries, DirectoryEntry{ID: a.ID, Name: a.Name, Email: a.Email})
		}

		if len(page) < directoryPageSize {
			return entries, nil
		}
	}
}

func (uc *AccountUseCase) directoryFromCache(ctx context.Context) ([]DirectoryEntry, bool) {
	if uc.cache == nil {
		return nil, false
	}

	raw, err := uc.cache.Get(ctx, directoryCacheKey)
	if err != nil {
		return nil, false
	}

	var entries []DirectoryEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, false
	}

	return entries, true
}

func (uc *AccountUseCase) directoryToCache(ctx context.Context, entries []DirectoryEntry) {
	if uc.cache == nil {
		return
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}

	_ = uc.cache.Set(ctx, directoryCacheKey, string(raw), DirectoryCacheTTL)
}
