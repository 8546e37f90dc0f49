package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/identity-service/internal/domain"
)

// MemoryAccountRepository is an in-memory AccountRepository. It backs the
// service when no Postgres DSN is configured and doubles as the test store.
// Uniqueness is case-insensitive, matching the Postgres index.
type MemoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

// NewMemoryAccountRepository creates an empty store.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Create inserts the account, assigning ID and timestamps. The check and
// insert happen under one lock, so concurrent registrations of the same
// username cannot both succeed.
func (r *MemoryAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := strings.ToLower(account.Username)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[key]; exists {
		return ErrConflict
	}

	now := time.Now()
	account.ID = uuid.NewString()
	account.CreatedAt = now
	account.UpdatedAt = now

	stored := *account
	r.accounts[key] = &stored
	return nil
}

// FindByUsername looks up an account, ignoring username case.
func (r *MemoryAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[strings.ToLower(username)]
	if !exists {
		return nil, ErrNotFound
	}

	found := *account
	return &found, nil
}
