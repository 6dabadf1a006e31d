package credential

import "time"

// SetClock is a test helper that overrides the memory store's time source.
func SetClock(s Store, now func() time.Time) {
	if mem, ok := s.(*memoryStore); ok {
		mem.mu.Lock()
		defer mem.mu.Unlock()
		mem.now = now
	}
}
