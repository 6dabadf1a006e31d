package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository reads bookings from PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed booking reader.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get fetches a booking by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Booking, error) {
	bookingID, err := uuid.Parse(id)
	if err != nil {
		return Booking{}, ErrBookingNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, status, created_at FROM bookings WHERE id = $1`, bookingID)
	return scanBooking(row)
}

// EarliestQualifying returns the user's oldest confirmed or completed booking.
func (r *PostgresRepository) EarliestQualifying(ctx context.Context, userID string) (Booking, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Booking{}, ErrNoQualifyingBooking
	}
	row := r.db.QueryRow(ctx, `SELECT id, user_id, status, created_at FROM bookings
        WHERE user_id = $1 AND status IN ($2, $3)
        ORDER BY created_at ASC LIMIT 1`, uid, StatusConfirmed, StatusCompleted)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, ErrBookingNotFound) {
			return Booking{}, ErrNoQualifyingBooking
		}
		return Booking{}, err
	}
	return b, nil
}

func scanBooking(row pgx.Row) (Booking, error) {
	var (
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
		b         Booking
	)
	if err := row.Scan(&id, &userID, &b.Status, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Booking{}, ErrBookingNotFound
		}
		return Booking{}, err
	}
	b.ID = id.String()
	b.UserID = userID.String()
	b.CreatedAt = createdAt.UTC()
	return b, nil
}
