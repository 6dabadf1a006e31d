package credential

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	byPair map[string]*Credential
	// tokens indexes live password-reset secrets back to their pair key so
	// LookupToken can resolve a bare token from a link.
	tokens map[string]string
	now    func() time.Time
}

// NewMemoryStore builds a process-scoped credential store. Contents do not
// survive a restart; outstanding codes are simply lost, which is acceptable
// because a caller can always request a fresh one.
func NewMemoryStore() Store {
	return &memoryStore{
		byPair: make(map[string]*Credential),
		tokens: make(map[string]string),
		now:    time.Now,
	}
}

func pairKey(subjectKey string, purpose Purpose) string {
	return subjectKey + "|" + string(purpose)
}

func (s *memoryStore) Issue(_ context.Context, subjectKey string, purpose Purpose, secret string, ttl time.Duration) error {
	if !purpose.Valid() {
		return ErrInvalidPurpose
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey(subjectKey, purpose)
	if prev, exists := s.byPair[key]; exists {
		delete(s.tokens, prev.Secret)
	}

	now := s.now().UTC()
	cred := &Credential{
		SubjectKey: subjectKey,
		Purpose:    purpose,
		Secret:     secret,
		IssuedAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	s.byPair[key] = cred
	if purpose == PurposePasswordReset {
		s.tokens[secret] = key
	}
	return nil
}

// Verify checks and consumes under one lock acquisition, so two concurrent
// calls with the correct secret can never both observe an unconsumed
// credential. A failed attempt leaves the credential untouched.
func (s *memoryStore) Verify(_ context.Context, subjectKey string, purpose Purpose, candidate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, exists := s.byPair[pairKey(subjectKey, purpose)]
	if !exists || cred.Consumed || cred.Expired(s.now()) || cred.Secret != candidate {
		return ErrInvalidOrExpired
	}

	cred.Consumed = true
	return nil
}

func (s *memoryStore) LookupToken(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.tokens[token]
	if !ok {
		return "", ErrInvalidOrExpired
	}
	cred, exists := s.byPair[key]
	if !exists || cred.Consumed || cred.Expired(s.now()) || cred.Secret != token {
		return "", ErrInvalidOrExpired
	}
	return cred.SubjectKey, nil
}

func (s *memoryStore) RemoveToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.tokens[token]
	if !ok {
		return nil
	}
	delete(s.tokens, token)
	if cred, exists := s.byPair[key]; exists && cred.Secret == token {
		delete(s.byPair, key)
	}
	return nil
}

// Sweep drops entries past their expiry and returns how many were removed.
// It is advisory cleanup only: Verify and LookupToken re-check expiry on
// every call, so sweep latency can never let an expired credential pass.
func (s *memoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, cred := range s.byPair {
		if cred.Expired(now) {
			delete(s.byPair, key)
			delete(s.tokens, cred.Secret)
			removed++
		}
	}
	return removed
}

// StartSweeper runs Sweep on a fixed cadence until the context is cancelled.
func StartSweeper(ctx context.Context, store Store, interval time.Duration, logger *slog.Logger) {
	mem, ok := store.(*memoryStore)
	if !ok {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := mem.Sweep(); removed > 0 && logger != nil {
					logger.Debug("credential sweep", "removed", removed)
				}
			}
		}
	}()
}
