package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound indicates no account exists for the given email.
var ErrAccountNotFound = errors.New("account not found")

// Repository persists accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (Account, error)
	MarkEmailVerified(ctx context.Context, email string) error
	UpdatePasswordHash(ctx context.Context, email string, hash []byte) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByEmail fetches an account by normalized email.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, email, password_hash, email_verified, created_at
        FROM accounts WHERE email = $1`, email)
	var (
		id        uuid.UUID
		createdAt time.Time
		acct      Account
	)
	if err := row.Scan(&id, &acct.Email, &acct.PasswordHash, &acct.EmailVerified, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	acct.ID = id.String()
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

// MarkEmailVerified flips the verification flag for the account.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, email string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET email_verified = TRUE WHERE email = $1`, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdatePasswordHash stores a new password hash for the account.
func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, email string, hash []byte) error {
	cmd, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $1 WHERE email = $2`, hash, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
