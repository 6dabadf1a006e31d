package wallet

// SeedBalance is a test helper that seeds the balance for a user when using
// the in-memory ledger. It bypasses the audit trail on purpose: seeded funds
// stand in for history that predates the test.
func SeedBalance(l Ledger, userID string, amount int64) {
	if mem, ok := l.(*inMemoryLedger); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.balances[userID] = amount
	}
}
