package referral

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists referral records. MarkCredited is the compare-and-set
// the whole reward pipeline hangs on: it advances pending -> credited only
// when the current status is exactly pending.
type Repository interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (Record, error)
	FindByReferredUser(ctx context.Context, userID string) (Record, error)
	ListPending(ctx context.Context) ([]Record, error)
	MarkCredited(ctx context.Context, id string) error
	MarkIneligible(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL. The conditional
// UPDATE carries the atomicity; no advisory locks are needed here.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed referral repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new pending referral.
func (r *PostgresRepository) Create(ctx context.Context, rec Record) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return err
	}
	referrer, err := uuid.Parse(rec.ReferrerID)
	if err != nil {
		return err
	}
	referred, err := uuid.Parse(rec.ReferredUserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO referrals (id, referrer_id, referred_user_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)`, id, referrer, referred, rec.Status, rec.CreatedAt.UTC())
	return err
}

// Get fetches a referral by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Record, error) {
	refID, err := uuid.Parse(id)
	if err != nil {
		return Record{}, ErrReferralNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, referrer_id, referred_user_id, status, created_at
        FROM referrals WHERE id = $1`, refID)
	return scanRecord(row)
}

// FindByReferredUser fetches the referral where the given user is the one
// who was referred.
func (r *PostgresRepository) FindByReferredUser(ctx context.Context, userID string) (Record, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Record{}, ErrReferralNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, referrer_id, referred_user_id, status, created_at
        FROM referrals WHERE referred_user_id = $1`, uid)
	return scanRecord(row)
}

// ListPending returns all referrals still awaiting qualification.
func (r *PostgresRepository) ListPending(ctx context.Context) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT id, referrer_id, referred_user_id, status, created_at
        FROM referrals WHERE status = $1 ORDER BY created_at ASC`, StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// MarkCredited advances pending -> credited. ErrNotPending means a concurrent
// caller already advanced it.
func (r *PostgresRepository) MarkCredited(ctx context.Context, id string) error {
	return r.transition(ctx, id, StatusCredited)
}

// MarkIneligible advances pending -> ineligible.
func (r *PostgresRepository) MarkIneligible(ctx context.Context, id string) error {
	return r.transition(ctx, id, StatusIneligible)
}

func (r *PostgresRepository) transition(ctx context.Context, id string, to Status) error {
	refID, err := uuid.Parse(id)
	if err != nil {
		return ErrReferralNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE referrals SET status = $1 WHERE id = $2 AND status = $3`,
		to, refID, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a lost race from a missing row.
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrNotPending
	}
	return nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		id        uuid.UUID
		referrer  uuid.UUID
		referred  uuid.UUID
		createdAt time.Time
		rec       Record
	)
	if err := row.Scan(&id, &referrer, &referred, &rec.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrReferralNotFound
		}
		return Record{}, err
	}
	rec.ID = id.String()
	rec.ReferrerID = referrer.String()
	rec.ReferredUserID = referred.String()
	rec.CreatedAt = createdAt.UTC()
	return rec, nil
}
