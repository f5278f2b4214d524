package repositories

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"farmverse/internal/models"

	"github.com/google/uuid"
)

// MemoryUserRepository is an in-memory implementation of UserRepository.
type MemoryUserRepository struct {
	accounts map[string]models.Account
	mu       sync.RWMutex
}

// NewMemoryUserRepository creates a new instance of MemoryUserRepository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		accounts: make(map[string]models.Account),
	}
}

// Create stores a new account. Emails are unique, compared case-insensitively.
func (r *MemoryUserRepository) Create(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return fmt.Errorf("account with email %s: %w", account.Email, ErrDuplicate)
		}
	}
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now
	r.accounts[account.ID] = *account
	return nil
}

// GetByEmail returns the account registered with email.
func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("account with email %s: %w", email, ErrNotFound)
}

// GetByID returns an account by its ID.
func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account with ID %s: %w", id, ErrNotFound)
	}
	return &a, nil
}
