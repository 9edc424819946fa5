package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/peerpay/internal/domain"
	"github.com/iho/peerpay/internal/usecase"
	"github.com/iho/peerpay/internal/usecase/mocks"
)

func newAccountFixture(t *testing.T) (*mocks.MockAccountRepository, *mocks.MockCache, *usecase.AccountUseCase) {
	t.Helper()

	accRepo := mocks.NewMockAccountRepository()
	cache := mocks.NewMockCache()
	idGen := mocks.NewMockIDGenerator()
	clock := mocks.NewMockClock(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	uc := usecase.NewAccountUseCase(accRepo, idGen, clock, cache)

	return accRepo, cache, uc
}

func TestAccountUseCase_Signup(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	account, err := uc.Signup(context.Background(), usecase.SignupInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	if !account.Balance.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("starting balance = %s, want 10000", account.Balance)
	}
	if account.HashedPassword != "" {
		t.Error("hashed password leaked in response")
	}
	if account.ID == "" {
		t.Error("account has no id")
	}

	stored := accRepo.Stored(account.ID)
	if stored == nil {
		t.Fatal("account not stored")
	}
	if stored.HashedPassword == "" || stored.HashedPassword == "Sup3rSecret" {
		t.Error("stored password not hashed")
	}
}

func TestAccountUseCase_Signup_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		input     usecase.SignupInput
		errorType error
	}{
		{
			name:      "empty name",
			input:     usecase.SignupInput{Name: "", Email: "a@example.com", Password: "Sup3rSecret"},
			errorType: domain.ErrInvalidName,
		},
		{
			name:      "bad email",
			input:     usecase.SignupInput{Name: "Alice", Email: "not-an-email", Password: "Sup3rSecret"},
			errorType: domain.ErrInvalidEmail,
		},
		{
			name:      "weak password",
			input:     usecase.SignupInput{Name: "Alice", Email: "a@example.com", Password: "short"},
			errorType: domain.ErrPasswordTooWeak,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, uc := newAccountFixture(t)

			_, err := uc.Signup(context.Background(), tt.input)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !errors.Is(err, tt.errorType) {
				t.Errorf("expected error %v, got %v", tt.errorType, err)
			}
		})
	}
}

func TestAccountUseCase_Signup_DuplicateEmail(t *testing.T) {
	_, _, uc := newAccountFixture(t)

	input := usecase.SignupInput{Name: "Alice", Email: "alice@example.com", Password: "Sup3rSecret"}
	if _, err := uc.Signup(context.Background(), input); err != nil {
		t.Fatalf("first signup failed: %v", err)
	}

	input.Name = "Imposter"
	if _, err := uc.Signup(context.Background(), input); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected email taken, got %v", err)
	}
}

func TestAccountUseCase_Authenticate(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("Sup3rSecret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	accRepo.Seed(&domain.Account{
		ID:             "acc-a",
		Name:           "Alice",
		Email:          "alice@example.com",
		HashedPassword: string(hash),
		Balance:        decimal.NewFromInt(10000),
	})

	account, err := uc.Authenticate(context.Background(), usecase.AuthenticateInput{
		Email:    "alice@example.com",
		Password: "Sup3rSecret",
	})
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if account.ID != "acc-a" {
		t.Errorf("account id = %q, want acc-a", account.ID)
	}
	if account.HashedPassword != "" {
		t.Error("hashed password leaked in response")
	}

	if _, err := uc.Authenticate(context.Background(), usecase.AuthenticateInput{
		Email:    "alice@example.com",
		Password: "wrong",
	}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}

	if _, err := uc.Authenticate(context.Background(), usecase.AuthenticateInput{
		Email:    "nobody@example.com",
		Password: "Sup3rSecret",
	}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("unknown email: expected unauthorized, got %v", err)
	}
}

func TestAccountUseCase_Directory(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	accRepo.Seed(&domain.Account{ID: "acc-a", Name: "Alice", Email: "alice@example.com"})
	accRepo.Seed(&domain.Account{ID: "acc-b", Name: "Bob", Email: "bob@example.com"})
	accRepo.Seed(&domain.Account{ID: "acc-c", Name: "Carol", Email: "carol@example.com"})

	entries, err := uc.Directory(context.Background(), "acc-a", 0, 0)
	if err != nil {
		t.Fatalf("directory failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ID == "acc-a" {
			t.Error("requesting account listed as its own recipient")
		}
	}
}

func TestAccountUseCase_Directory_PagesThroughRepository(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	// 1200 accounts force a second page when the snapshot is built.
	const population = 1200
	all := make([]*domain.Account, population)
	for i := range all {
		all[i] = &domain.Account{
			ID:    fmt.Sprintf("acc-%04d", i),
			Name:  fmt.Sprintf("Account %04d", i),
			Email: fmt.Sprintf("acc-%04d@example.com", i),
		}
	}

	var offsets []int
	accRepo.ListFunc = func(ctx context.Context, excludeID string, limit, offset int) ([]*domain.Account, error) {
		offsets = append(offsets, offset)
		if offset >= len(all) {
			return nil, nil
		}
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		return all[offset:end], nil
	}

	entries, err := uc.Directory(context.Background(), "", 1000, 500)
	if err != nil {
		t.Fatalf("directory failed: %v", err)
	}

	if len(entries) != 700 {
		t.Fatalf("entries = %d, want 700", len(entries))
	}
	if last := entries[len(entries)-1]; last.ID != "acc-1199" {
		t.Errorf("last entry = %s, want acc-1199", last.ID)
	}
	if len(offsets) != 2 || offsets[0] != 0 || offsets[1] != 1000 {
		t.Errorf("list offsets = %v, want [0 1000]", offsets)
	}
}

func TestAccountUseCase_Directory_CacheInvalidation(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	accRepo.Seed(&domain.Account{ID: "acc-a", Name: "Alice", Email: "alice@example.com"})

	entries, err := uc.Directory(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("directory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}

	// A new signup must show up even though the listing was cached.
	if _, err := uc.Signup(context.Background(), usecase.SignupInput{
		Name:     "Bob",
		Email:    "bob@example.com",
		Password: "Sup3rSecret",
	}); err != nil {
		t.Fatalf("signup failed: %v", err)
	}

	entries, err = uc.Directory(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("directory failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("entries after signup = %d, want 2", len(entries))
	}
}

func TestAccountUseCase_Directory_ServesFromCache(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	accRepo.Seed(&domain.Account{ID: "acc-a", Name: "Alice", Email: "alice@example.com"})

	if _, err := uc.Directory(context.Background(), "", 0, 0); err != nil {
		t.Fatalf("directory failed: %v", err)
	}

	// Once cached, the listing no longer hits the repository.
	accRepo.ListFunc = func(ctx context.Context, excludeID string, limit, offset int) ([]*domain.Account, error) {
		t.Error("repository queried despite warm cache")
		return nil, nil
	}

	entries, err := uc.Directory(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("directory failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func TestAccountUseCase_History(t *testing.T) {
	accRepo, _, uc := newAccountFixture(t)

	account := &domain.Account{ID: "acc-a", Name: "Alice", Email: "alice@example.com"}
	account.Log.InsertHead(&domain.TransactionRecord{ID: "tx-1", Amount: decimal.NewFromInt(50), Role: domain.RoleSent})
	account.Log.InsertHead(&domain.TransactionRecord{ID: "tx-2", Amount: decimal.NewFromInt(70), Role: domain.RoleReceived})
	accRepo.Seed(account)

	log, err := uc.History(context.Background(), "acc-a")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}

	if len(log) != 2 {
		t.Fatalf("log = %d records, want 2", len(log))
	}
	if log[0].ID != "tx-2" {
		t.Error("history not newest first")
	}

	if _, err := uc.History(context.Background(), "acc-missing"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("expected account not found, got %v", err)
	}
}
