package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists balances and audit entries in PostgreSQL. The
// per-user row lock (SELECT ... FOR UPDATE) serializes concurrent mutations
// of the same wallet; a unique index on wallet_entries.ref backs the
// idempotent reference check.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees a wallet row exists for the user.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, userID string) error {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("parse user id: %w", err)
	}
	_, err = l.db.Exec(ctx, `INSERT INTO wallets (user_id, balance) VALUES ($1, 0)
        ON CONFLICT (user_id) DO NOTHING`, uid)
	return err
}

// Balance returns the current balance for the user's wallet.
func (l *PostgresLedger) Balance(ctx context.Context, userID string) (int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return 0, ErrAccountNotFound
	}
	var balance int64
	if err := l.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1`, uid).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Credit adds funds to the wallet with an audit entry.
func (l *PostgresLedger) Credit(ctx context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error) {
	if amount <= 0 {
		return Mutation{}, ErrInvalidAmount
	}
	return l.post(ctx, userID, amount, reason, actor, ref)
}

// Debit removes funds, failing closed when the balance cannot cover it.
func (l *PostgresLedger) Debit(ctx context.Context, userID string, amount int64, reason, actor, ref string) (Mutation, error) {
	if amount <= 0 {
		return Mutation{}, ErrInvalidAmount
	}
	return l.post(ctx, userID, -amount, reason, actor, ref)
}

// Set posts the delta between the current and target balance.
func (l *PostgresLedger) Set(ctx context.Context, userID string, newBalance int64, reason, actor string) (Mutation, error) {
	if newBalance < 0 {
		return Mutation{}, ErrInvalidAmount
	}
	current, err := l.Balance(ctx, userID)
	if err != nil {
		return Mutation{}, err
	}
	delta := newBalance - current
	if delta == 0 {
		return Mutation{Previous: current, Delta: 0, New: current}, nil
	}
	// The row lock in post re-reads the balance, so a concurrent mutation
	// between the read above and the posting still yields a consistent entry;
	// the target balance is recomputed against the locked value.
	return l.postAbsolute(ctx, userID, newBalance, reason, actor)
}

func (l *PostgresLedger) post(ctx context.Context, userID string, delta int64, reason, actor, ref string) (Mutation, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Mutation{}, ErrAccountNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	previous, err := lockBalance(ctx, tx, uid)
	if err != nil {
		return Mutation{}, err
	}

	if ref != "" {
		var existingID uuid.UUID
		var existingPrev, existingDelta, existingNew int64
		err := tx.QueryRow(ctx, `SELECT id, previous_balance, delta, new_balance
            FROM wallet_entries WHERE ref = $1`, ref).Scan(&existingID, &existingPrev, &existingDelta, &existingNew)
		if err == nil {
			return Mutation{EntryID: existingID.String(), Previous: existingPrev, Delta: existingDelta, New: existingNew}, ErrDuplicateEntry
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Mutation{}, err
		}
	}

	next := previous + delta
	if next < 0 {
		return Mutation{}, ErrInsufficientFunds
	}

	entryID, err := insertEntry(ctx, tx, uid, previous, delta, next, reason, actor, ref)
	if err != nil {
		return Mutation{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE user_id = $2`, next, uid); err != nil {
		return Mutation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Mutation{}, err
	}

	return Mutation{EntryID: entryID.String(), Previous: previous, Delta: delta, New: next}, nil
}

func (l *PostgresLedger) postAbsolute(ctx context.Context, userID string, target int64, reason, actor string) (Mutation, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Mutation{}, ErrAccountNotFound
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Mutation{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	previous, err := lockBalance(ctx, tx, uid)
	if err != nil {
		return Mutation{}, err
	}
	delta := target - previous
	if delta == 0 {
		return Mutation{Previous: previous, Delta: 0, New: previous}, nil
	}

	entryID, err := insertEntry(ctx, tx, uid, previous, delta, target, reason, actor, "")
	if err != nil {
		return Mutation{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE user_id = $2`, target, uid); err != nil {
		return Mutation{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Mutation{}, err
	}

	return Mutation{EntryID: entryID.String(), Previous: previous, Delta: delta, New: target}, nil
}

// Entries returns the full audit trail for a wallet, oldest first.
func (l *PostgresLedger) Entries(ctx context.Context, userID string) ([]Entry, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, ErrAccountNotFound
	}
	if _, err := l.Balance(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := l.db.Query(ctx, `SELECT id, previous_balance, delta, new_balance, reason, actor, COALESCE(ref, ''), created_at
        FROM wallet_entries WHERE user_id = $1 ORDER BY created_at ASC`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id        uuid.UUID
			createdAt time.Time
			e         Entry
		)
		if err := rows.Scan(&id, &e.Previous, &e.Delta, &e.New, &e.Reason, &e.Actor, &e.Ref, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.UserID = userID
		e.At = createdAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func lockBalance(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int64, error) {
	var balance int64
	if err := tx.QueryRow(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

func insertEntry(ctx context.Context, tx pgx.Tx, userID uuid.UUID, previous, delta, next int64, reason, actor, ref string) (uuid.UUID, error) {
	entryID := uuid.New()
	var refArg any
	if ref != "" {
		refArg = ref
	}
	_, err := tx.Exec(ctx, `INSERT INTO wallet_entries (id, user_id, previous_balance, delta, new_balance, reason, actor, ref, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entryID, userID, previous, delta, next, reason, actor, refArg, time.Now().UTC())
	if err != nil {
		return uuid.Nil, err
	}
	return entryID, nil
}
