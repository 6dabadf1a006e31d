package identity

import "time"

// Account is the system-of-record view of a registered user, keyed by
// normalized email. This core consults accounts and updates verification and
// password state; signup itself happens elsewhere.
type Account struct {
	ID            string
	Email         string
	PasswordHash  []byte
	EmailVerified bool
	CreatedAt     time.Time
}
