package booking

import (
	"context"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	bookings map[string]Booking
}

// NewMemoryRepository builds an in-memory booking store for testing.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{inner: &memoryRepository{bookings: make(map[string]Booking)}}
}

// MemoryRepository wraps the map store and exposes an Add helper for tests
// and local runs; the Repository interface itself stays read-only.
type MemoryRepository struct {
	inner *memoryRepository
}

// Add inserts or replaces a booking record.
func (r *MemoryRepository) Add(b Booking) {
	r.inner.mu.Lock()
	defer r.inner.mu.Unlock()
	r.inner.bookings[b.ID] = b
}

func (r *MemoryRepository) Get(_ context.Context, id string) (Booking, error) {
	r.inner.mu.RLock()
	defer r.inner.mu.RUnlock()
	b, ok := r.inner.bookings[id]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (r *MemoryRepository) EarliestQualifying(_ context.Context, userID string) (Booking, error) {
	r.inner.mu.RLock()
	defer r.inner.mu.RUnlock()

	var earliest Booking
	found := false
	for _, b := range r.inner.bookings {
		if b.UserID != userID || !b.Qualifying() {
			continue
		}
		if !found || b.CreatedAt.Before(earliest.CreatedAt) {
			earliest = b
			found = true
		}
	}
	if !found {
		return Booking{}, ErrNoQualifyingBooking
	}
	return earliest, nil
}
