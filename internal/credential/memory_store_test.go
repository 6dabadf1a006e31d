package credential

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryStoreVerifyConsumesOnce(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetClock(store, func() time.Time { return clock })

	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "482913", 10*time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = base.Add(5 * time.Minute)
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "482913"); err != nil {
		t.Fatalf("verify at T+5m: %v", err)
	}

	clock = base.Add(5*time.Minute + time.Second)
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "482913"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestMemoryStoreWrongSecretDoesNotConsume(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Verify(ctx, "a@x.com", PurposeLogin, "999999"); !errors.Is(err, ErrInvalidOrExpired) {
			t.Fatalf("expected wrong secret to fail, got %v", err)
		}
	}

	// Retries with the correct value stay possible until expiry.
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "111111"); err != nil {
		t.Fatalf("verify after failed attempts: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetClock(store, func() time.Time { return clock })

	if err := store.Issue(ctx, "a@x.com", PurposeSignup, "246810", 10*time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}

	clock = base.Add(10*time.Minute + time.Second)
	if err := store.Verify(ctx, "a@x.com", PurposeSignup, "246810"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected expired verify to fail, got %v", err)
	}
}

func TestMemoryStoreReissueInvalidatesPrevious(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "222222", 10*time.Minute); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "111111"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected stale code to fail, got %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "222222"); err != nil {
		t.Fatalf("fresh code should verify: %v", err)
	}
}

func TestMemoryStorePurposesAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute)
	store.Issue(ctx, "a@x.com", PurposeChangeEmail, "222222", 10*time.Minute)

	if err := store.Verify(ctx, "a@x.com", PurposeChangeEmail, "111111"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("login code must not verify for change_email, got %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "111111"); err != nil {
		t.Fatalf("login code: %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeChangeEmail, "222222"); err != nil {
		t.Fatalf("change_email code: %v", err)
	}
}

func TestMemoryStoreConcurrentVerifySingleWinner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "654321", 10*time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}

	const callers = 16
	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Verify(ctx, "a@x.com", PurposeLogin, "654321"); err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful verify, got %d", successes)
	}
}

func TestMemoryStoreResetTokenLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetClock(store, func() time.Time { return clock })

	token, err := GenerateResetToken()
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if err := store.Issue(ctx, "a@x.com", PurposePasswordReset, token, time.Hour); err != nil {
		t.Fatalf("issue: %v", err)
	}

	subject, err := store.LookupToken(ctx, token)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if subject != "a@x.com" {
		t.Fatalf("expected subject a@x.com, got %s", subject)
	}

	// Lookup is non-consuming.
	if _, err := store.LookupToken(ctx, token); err != nil {
		t.Fatalf("second lookup: %v", err)
	}

	if err := store.Verify(ctx, "a@x.com", PurposePasswordReset, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.RemoveToken(ctx, token); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.LookupToken(ctx, token); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected removed token lookup to fail, got %v", err)
	}
}

func TestMemoryStoreResetTokenExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetClock(store, func() time.Time { return clock })

	store.Issue(ctx, "a@x.com", PurposePasswordReset, "feedfacefeedface", time.Hour)

	clock = base.Add(61 * time.Minute)
	if _, err := store.LookupToken(ctx, "feedfacefeedface"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected lookup at T+61m to fail, got %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposePasswordReset, "feedfacefeedface"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected verify at T+61m to fail, got %v", err)
	}
}

func TestMemoryStoreSweepRemovesExpired(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	SetClock(store, func() time.Time { return clock })

	store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute)
	store.Issue(ctx, "b@x.com", PurposeLogin, "222222", time.Hour)

	clock = base.Add(30 * time.Minute)
	mem := store.(*memoryStore)
	if removed := mem.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1 entry, removed %d", removed)
	}
	if err := store.Verify(ctx, "b@x.com", PurposeLogin, "222222"); err != nil {
		t.Fatalf("unexpired credential must survive sweep: %v", err)
	}
}
