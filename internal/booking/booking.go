package booking

import (
	"context"
	"errors"
	"time"
)

// Booking statuses. Confirmed and completed count as a real commitment for
// referral qualification; cancelled and pending do not.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	// ErrBookingNotFound indicates no booking exists for the identifier.
	ErrBookingNotFound = errors.New("booking not found")
	// ErrNoQualifyingBooking indicates the user has no confirmed booking yet.
	ErrNoQualifyingBooking = errors.New("no qualifying booking")
)

// Booking is a trip reservation owned by a user.
type Booking struct {
	ID        string
	UserID    string
	Status    string
	CreatedAt time.Time
}

// Qualifying reports whether the booking's status counts toward a referral reward.
func (b Booking) Qualifying() bool {
	return b.Status == StatusConfirmed || b.Status == StatusCompleted
}

// Repository reads booking state. This core never mutates bookings.
type Repository interface {
	Get(ctx context.Context, id string) (Booking, error)
	// EarliestQualifying returns the user's oldest booking in the confirmed
	// set, or ErrNoQualifyingBooking when none exists.
	EarliestQualifying(ctx context.Context, userID string) (Booking, error)
}
