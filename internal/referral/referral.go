package referral

import (
	"errors"
	"time"
)

// Status of a referral's reward. Credited is terminal: no transition ever
// leaves it.
type Status string

const (
	StatusPending    Status = "pending"
	StatusCredited   Status = "credited"
	StatusIneligible Status = "ineligible"
)

// Outcome of a single processing attempt.
type Outcome string

const (
	OutcomeCredited        Outcome = "credited"
	OutcomeAlreadyCredited Outcome = "already_credited"
	OutcomeNotYetQualified Outcome = "not_yet_qualified"
	OutcomeIneligible      Outcome = "ineligible"
)

var (
	// ErrReferralNotFound indicates no referral exists for the identifier.
	ErrReferralNotFound = errors.New("referral not found")

	// ErrNotPending is returned by the repository compare-and-set when the
	// referral's status is no longer pending. For the processor this is the
	// idempotency short-circuit, not a failure.
	ErrNotPending = errors.New("referral is not pending")
)

// Record represents one referrer -> referred relationship.
type Record struct {
	ID             string
	ReferrerID     string
	ReferredUserID string
	Status         Status
	CreatedAt      time.Time
}
