package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestInMemoryLedgerCreditDebitRoundTrip(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if err := l.EnsureAccount(ctx, "user-a"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	res, err := l.Credit(ctx, "user-a", 75, "top up", "admin:ops", "")
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if res.Previous != 0 || res.Delta != 75 || res.New != 75 {
		t.Fatalf("unexpected credit mutation: %+v", res)
	}

	res, err = l.Debit(ctx, "user-a", 75, "withdrawal", "admin:ops", "")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if res.New != 0 {
		t.Fatalf("expected balance 0, got %d", res.New)
	}

	entries, err := l.Entries(ctx, "user-a")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
}

func TestInMemoryLedgerDebitFailsClosed(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "user-a")
	SeedBalance(l, "user-a", 50)

	if _, err := l.Debit(ctx, "user-a", 75, "withdrawal", "admin:ops", ""); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	balance, err := l.Balance(ctx, "user-a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 50 {
		t.Fatalf("failed debit must not mutate balance, got %d", balance)
	}
	entries, _ := l.Entries(ctx, "user-a")
	if len(entries) != 0 {
		t.Fatalf("failed debit must not write an audit entry, got %d", len(entries))
	}
}

func TestInMemoryLedgerEntryInvariant(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "user-a")

	l.Credit(ctx, "user-a", 100, "reward", ActorSystem, "ref-1")
	l.Debit(ctx, "user-a", 30, "purchase", ActorSystem, "")
	l.Credit(ctx, "user-a", 12, "promo", ActorSystem, "")

	entries, err := l.Entries(ctx, "user-a")
	if err != nil {
		t.Fatalf("entries: %v", err)
	}

	var sum int64
	for _, e := range entries {
		if e.New != e.Previous+e.Delta {
			t.Fatalf("entry %s violates new = previous + delta: %+v", e.ID, e)
		}
		sum += e.Delta
	}

	balance, _ := l.Balance(ctx, "user-a")
	if sum != balance {
		t.Fatalf("sum of deltas %d does not equal balance %d", sum, balance)
	}
}

func TestInMemoryLedgerDuplicateRef(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "user-a")

	first, err := l.Credit(ctx, "user-a", 100, "reward", ActorSystem, "referral:r1")
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}

	dup, err := l.Credit(ctx, "user-a", 100, "reward", ActorSystem, "referral:r1")
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("expected duplicate entry error, got %v", err)
	}
	if dup.EntryID != first.EntryID {
		t.Fatalf("duplicate should return the original mutation")
	}

	balance, _ := l.Balance(ctx, "user-a")
	if balance != 100 {
		t.Fatalf("duplicate ref must not credit twice, balance %d", balance)
	}
}

func TestInMemoryLedgerSetPostsDelta(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "user-a")
	SeedBalance(l, "user-a", 40)

	res, err := l.Set(ctx, "user-a", 100, "manual adjustment", "admin:jo")
	if err != nil {
		t.Fatalf("set up: %v", err)
	}
	if res.Delta != 60 || res.New != 100 {
		t.Fatalf("unexpected set mutation: %+v", res)
	}

	res, err = l.Set(ctx, "user-a", 25, "manual adjustment", "admin:jo")
	if err != nil {
		t.Fatalf("set down: %v", err)
	}
	if res.Delta != -75 || res.New != 25 {
		t.Fatalf("unexpected set mutation: %+v", res)
	}

	entries, _ := l.Entries(ctx, "user-a")
	if len(entries) != 2 {
		t.Fatalf("set must write audit entries like any mutation, got %d", len(entries))
	}

	if _, err := l.Set(ctx, "user-a", -5, "bad", "admin:jo"); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount for negative target, got %v", err)
	}
}

func TestInMemoryLedgerUnknownAccount(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()

	if _, err := l.Balance(ctx, "ghost"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	if _, err := l.Credit(ctx, "ghost", 10, "x", ActorSystem, ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestInMemoryLedgerConcurrentCredits(t *testing.T) {
	l := NewInMemory()
	ctx := context.Background()
	l.EnsureAccount(ctx, "user-a")

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ref := fmt.Sprintf("tx-%d", i)
			if _, err := l.Credit(ctx, "user-a", 10, "load test", ActorSystem, ref); err != nil {
				t.Errorf("credit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	balance, _ := l.Balance(ctx, "user-a")
	if balance != workers*10 {
		t.Fatalf("expected balance %d, got %d", workers*10, balance)
	}
	entries, _ := l.Entries(ctx, "user-a")
	if len(entries) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(entries))
	}
}
