package identity

import (
	"context"
	"errors"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

// NewMemoryRepository builds an in-memory account store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{accounts: make(map[string]Account)}
}

// Seed inserts an account directly; test helper.
func Seed(r Repository, acct Account) error {
	mem, ok := r.(*memoryRepository)
	if !ok {
		return errors.New("seed requires memory repository")
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	if _, exists := mem.accounts[acct.Email]; exists {
		return errors.New("account exists")
	}
	mem.accounts[acct.Email] = acct
	return nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	acct, ok := r.accounts[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return acct, nil
}

func (r *memoryRepository) MarkEmailVerified(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	acct.EmailVerified = true
	r.accounts[email] = acct
	return nil
}

func (r *memoryRepository) UpdatePasswordHash(_ context.Context, email string, hash []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.accounts[email]
	if !ok {
		return ErrAccountNotFound
	}
	acct.PasswordHash = hash
	r.accounts[email] = acct
	return nil
}
