package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type inMemoryLedger struct {
	mu       sync.RWMutex
	balances map[string]int64
	entries  map[string][]Entry
	refs     map[string]Mutation
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit
// tests and development runs without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances: make(map[string]int64),
		entries:  make(map[string][]Entry),
		refs:     make(map[string]Mutation),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[userID]; !exists {
		l.balances[userID] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[userID]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Credit(_ context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error) {
	if amount <= 0 {
		return Mutation{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(userID, amount, reason, actor, ref)
}

func (l *inMemoryLedger) Debit(_ context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error) {
	if amount <= 0 {
		return Mutation{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.post(userID, -amount, reason, actor, ref)
}

func (l *inMemoryLedger) Set(_ context.Context, userID string, newBalance int64, reason, actor string) (Mutation, error) {
	if newBalance < 0 {
		return Mutation{}, ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.balances[userID]
	if !exists {
		return Mutation{}, ErrAccountNotFound
	}
	delta := newBalance - current
	if delta == 0 {
		return Mutation{Previous: current, Delta: 0, New: current}, nil
	}
	return l.post(userID, delta, reason, actor, "")
}

// post applies a signed delta under the held lock, recording the audit entry.
func (l *inMemoryLedger) post(userID string, delta int64, reason, actor, ref string) (Mutation, error) {
	if ref != "" {
		if prev, exists := l.refs[ref]; exists {
			return prev, ErrDuplicateEntry
		}
	}

	previous, exists := l.balances[userID]
	if !exists {
		return Mutation{}, ErrAccountNotFound
	}
	next := previous + delta
	if next < 0 {
		return Mutation{}, ErrInsufficientFunds
	}

	entry := Entry{
		ID:       uuid.NewString(),
		UserID:   userID,
		Previous: previous,
		Delta:    delta,
		New:      next,
		Reason:   reason,
		Actor:    actor,
		Ref:      ref,
		At:       time.Now().UTC(),
	}

	l.balances[userID] = next
	l.entries[userID] = append(l.entries[userID], entry)

	res := Mutation{EntryID: entry.ID, Previous: previous, Delta: delta, New: next}
	if ref != "" {
		l.refs[ref] = res
	}
	return res, nil
}

func (l *inMemoryLedger) Entries(_ context.Context, userID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, exists := l.balances[userID]; !exists {
		return nil, ErrAccountNotFound
	}
	out := make([]Entry, len(l.entries[userID]))
	copy(out, l.entries[userID])
	return out, nil
}
