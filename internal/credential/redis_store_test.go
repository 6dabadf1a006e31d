package credential

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupRedisStore(t *testing.T) (Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return NewRedisStore(client), mr
}

func TestRedisStoreVerifyConsumesOnce(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	if err := store.Issue(ctx, "a@x.com", PurposeLogin, "482913", 10*time.Minute); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "482913"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "482913"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected replay to fail, got %v", err)
	}
}

func TestRedisStoreWrongSecretLeavesCredential(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute)

	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "999999"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected wrong secret to fail, got %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "111111"); err != nil {
		t.Fatalf("correct secret after failed attempt: %v", err)
	}
}

func TestRedisStoreExpiryViaTTL(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	store.Issue(ctx, "a@x.com", PurposeLogin, "246810", 10*time.Minute)

	mr.FastForward(10*time.Minute + time.Second)

	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "246810"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected expired verify to fail, got %v", err)
	}
}

func TestRedisStoreReissueInvalidatesPrevious(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	store.Issue(ctx, "a@x.com", PurposeLogin, "111111", 10*time.Minute)
	store.Issue(ctx, "a@x.com", PurposeLogin, "222222", 10*time.Minute)

	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "111111"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected stale code to fail, got %v", err)
	}
	if err := store.Verify(ctx, "a@x.com", PurposeLogin, "222222"); err != nil {
		t.Fatalf("fresh code: %v", err)
	}
}

func TestRedisStoreResetTokenLifecycle(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	store.Issue(ctx, "a@x.com", PurposePasswordReset, "cafebabe01", time.Hour)

	subject, err := store.LookupToken(ctx, "cafebabe01")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if subject != "a@x.com" {
		t.Fatalf("expected a@x.com, got %s", subject)
	}

	// A re-issue replaces the pair entry, so the old token must stop resolving.
	store.Issue(ctx, "a@x.com", PurposePasswordReset, "cafebabe02", time.Hour)
	if _, err := store.LookupToken(ctx, "cafebabe01"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected replaced token lookup to fail, got %v", err)
	}

	if err := store.Verify(ctx, "a@x.com", PurposePasswordReset, "cafebabe02"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := store.RemoveToken(ctx, "cafebabe02"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	mr.FastForward(time.Hour + time.Minute)
	if _, err := store.LookupToken(ctx, "cafebabe02"); !errors.Is(err, ErrInvalidOrExpired) {
		t.Fatalf("expected expired token lookup to fail, got %v", err)
	}
}
