package referral

import (
	"context"
	"errors"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryRepository builds an in-memory referral store for testing. The
// compare-and-set transitions hold the same mutex as reads, so it exhibits
// the same at-most-once behavior as the Postgres conditional update.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Record)}
}

func (r *memoryRepository) Create(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.ID]; exists {
		return errors.New("referral exists")
	}
	r.records[rec.ID] = rec
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, ErrReferralNotFound
	}
	return rec, nil
}

func (r *memoryRepository) FindByReferredUser(_ context.Context, userID string) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ReferredUserID == userID {
			return rec, nil
		}
	}
	return Record{}, ErrReferralNotFound
}

func (r *memoryRepository) ListPending(_ context.Context) ([]Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []Record
	for _, rec := range r.records {
		if rec.Status == StatusPending {
			pending = append(pending, rec)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	return pending, nil
}

func (r *memoryRepository) MarkCredited(_ context.Context, id string) error {
	return r.transition(id, StatusCredited)
}

func (r *memoryRepository) MarkIneligible(_ context.Context, id string) error {
	return r.transition(id, StatusIneligible)
}

func (r *memoryRepository) transition(id string, to Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return ErrReferralNotFound
	}
	if rec.Status != StatusPending {
		return ErrNotPending
	}
	rec.Status = to
	r.records[id] = rec
	return nil
}
