package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAccountNotFound occurs when no wallet exists for the user.
	ErrAccountNotFound = errors.New("wallet account not found")

	// ErrInsufficientFunds occurs when a debit would drive the balance
	// negative. The debit fails closed: no partial mutation happens.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount rejects zero or negative mutation amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDuplicateEntry indicates the provided reference was already applied
	// and therefore the operation should be treated as idempotent.
	ErrDuplicateEntry = errors.New("duplicate ledger entry")
)

// ActorSystem identifies mutations the platform performs on its own behalf,
// such as referral reward credits.
const ActorSystem = "system"

// Entry is the immutable audit record written alongside every balance
// mutation. New always equals Previous + Delta; entries are never edited
// or deleted.
type Entry struct {
	ID       string
	UserID   string
	Previous int64
	Delta    int64
	New      int64
	Reason   string
	Actor    string
	Ref      string
	At       time.Time
}

// Mutation captures the outcome of a successful ledger posting.
type Mutation struct {
	EntryID  string
	Previous int64
	Delta    int64
	New      int64
}

// Ledger owns every balance change. Balances are int64 minor units; there is
// no write path that bypasses the audit entry. A non-empty ref deduplicates:
// re-posting the same ref returns ErrDuplicateEntry and mutates nothing.
type Ledger interface {
	EnsureAccount(ctx context.Context, userID string) error
	Balance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error)
	Debit(ctx context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error)
	// Set adjusts the balance to an absolute value by posting the computed
	// delta through the normal credit/debit path.
	Set(ctx context.Context, userID string, newBalance int64, reason, actor string) (Mutation, error)
	Entries(ctx context.Context, userID string) ([]Entry, error)
}
