package credential

import (
	"context"
	"errors"
	"time"
)

// Purpose scopes a credential to the flow that requested it. A subject may
// hold at most one live credential per purpose.
type Purpose string

const (
	PurposeLogin          Purpose = "login"
	PurposeSignup         Purpose = "signup"
	PurposeChangeEmail    Purpose = "change_email"
	PurposeChangePassword Purpose = "change_password"
	PurposePasswordReset  Purpose = "password_reset"
)

// Valid reports whether the purpose is one of the known flows.
func (p Purpose) Valid() bool {
	switch p {
	case PurposeLogin, PurposeSignup, PurposeChangeEmail, PurposeChangePassword, PurposePasswordReset:
		return true
	}
	return false
}

var (
	// ErrInvalidOrExpired is the single outcome reported for every failed
	// verification: missing, expired, already consumed, or wrong secret.
	// Callers never learn which one occurred.
	ErrInvalidOrExpired = errors.New("code is invalid or expired")

	// ErrInvalidPurpose rejects a purpose outside the known set before the
	// store is touched.
	ErrInvalidPurpose = errors.New("unknown credential purpose")
)

// Credential is a short-lived single-use secret bound to a (subject, purpose)
// pair. Consumed is set exactly once and never cleared.
type Credential struct {
	SubjectKey string
	Purpose    Purpose
	Secret     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	Consumed   bool
}

// Expired reports whether the credential is past its expiry at the given instant.
func (c Credential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Store holds outstanding credentials. Issue replaces any live credential for
// the same (subject, purpose) pair. Verify checks and consumes in a single
// atomic step so two concurrent calls can never both succeed.
type Store interface {
	Issue(ctx context.Context, subjectKey string, purpose Purpose, secret string, ttl time.Duration) error
	Verify(ctx context.Context, subjectKey string, purpose Purpose, candidate string) error
	// LookupToken resolves a reset token to its subject without consuming it.
	LookupToken(ctx context.Context, token string) (string, error)
	// RemoveToken invalidates a reset token once its value has been applied.
	RemoveToken(ctx context.Context, token string) error
}
