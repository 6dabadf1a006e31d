package referral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roamstay/roamstay/internal/booking"
	"github.com/roamstay/roamstay/internal/wallet"
)

// errorSampleCap bounds how many error messages a sweep report carries.
const errorSampleCap = 10

// Processor decides when a referral has qualified and credits the referrer's
// wallet exactly once. Three layers keep the credit at-most-once: a per
// referral in-process lock, the ledger's reference dedupe, and the
// repository's pending-only compare-and-set.
type Processor struct {
	repo     Repository
	bookings booking.Repository
	ledger   wallet.Ledger
	reward   int64
	logger   *slog.Logger

	locks sync.Map // referral id -> *sync.Mutex
}

// NewProcessor builds a reward processor crediting the configured amount per
// qualified referral.
func NewProcessor(repo Repository, bookings booking.Repository, ledger wallet.Ledger, rewardAmount int64, logger *slog.Logger) *Processor {
	return &Processor{
		repo:     repo,
		bookings: bookings,
		ledger:   ledger,
		reward:   rewardAmount,
		logger:   logger,
	}
}

// Result describes one processing attempt.
type Result struct {
	ReferralID          string
	Outcome             Outcome
	QualifyingBookingID string
	ReferrerBalance     int64
}

// ProcessReferral runs the qualification check for a single referral. Safe to
// call any number of times, concurrently or not: only the first qualifying
// call mutates the ledger, every later call observes already_credited.
func (p *Processor) ProcessReferral(ctx context.Context, referralID string) (Result, error) {
	lock := p.lockFor(referralID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := p.repo.Get(ctx, referralID)
	if err != nil {
		return Result{}, err
	}
	return p.process(ctx, rec)
}

// ProcessBooking resolves the booking's owner to their referral and processes
// it. Used by the booking-state-change trigger. Whichever booking ID arrives,
// the reward stays keyed to the user's earliest qualifying booking.
func (p *Processor) ProcessBooking(ctx context.Context, bookingID string) (Result, error) {
	b, err := p.bookings.Get(ctx, bookingID)
	if err != nil {
		return Result{}, err
	}
	rec, err := p.repo.FindByReferredUser(ctx, b.UserID)
	if err != nil {
		return Result{}, err
	}
	return p.ProcessReferral(ctx, rec.ID)
}

func (p *Processor) process(ctx context.Context, rec Record) (Result, error) {
	res := Result{ReferralID: rec.ID}

	switch rec.Status {
	case StatusCredited:
		res.Outcome = OutcomeAlreadyCredited
		return res, nil
	case StatusIneligible:
		res.Outcome = OutcomeIneligible
		return res, nil
	}

	qualifying, err := p.bookings.EarliestQualifying(ctx, rec.ReferredUserID)
	if err != nil {
		if errors.Is(err, booking.ErrNoQualifyingBooking) {
			res.Outcome = OutcomeNotYetQualified
			return res, nil
		}
		return Result{}, fmt.Errorf("qualification check for referral %s: %w", rec.ID, err)
	}
	res.QualifyingBookingID = qualifying.ID

	if err := p.ledger.EnsureAccount(ctx, rec.ReferrerID); err != nil {
		return Result{}, fmt.Errorf("ensure referrer wallet: %w", err)
	}

	// The credit lands before the status flip; the ledger reference makes a
	// retry after a crash between the two steps a no-op instead of a double
	// credit.
	mutation, err := p.ledger.Credit(ctx, rec.ReferrerID, p.reward,
		fmt.Sprintf("referral reward for booking %s", qualifying.ID),
		wallet.ActorSystem, rewardRef(rec.ID))
	if err != nil && !errors.Is(err, wallet.ErrDuplicateEntry) {
		return Result{}, fmt.Errorf("credit referrer %s: %w", rec.ReferrerID, err)
	}
	res.ReferrerBalance = mutation.New

	if err := p.repo.MarkCredited(ctx, rec.ID); err != nil {
		if errors.Is(err, ErrNotPending) {
			res.Outcome = OutcomeAlreadyCredited
			return res, nil
		}
		return Result{}, fmt.Errorf("mark referral %s credited: %w", rec.ID, err)
	}

	if p.logger != nil {
		p.logger.Info("referral credited",
			"referral_id", rec.ID,
			"referrer_id", rec.ReferrerID,
			"booking_id", qualifying.ID,
			"amount", p.reward,
		)
	}
	res.Outcome = OutcomeCredited
	return res, nil
}

// SweepReport summarizes a batch pass over pending referrals.
type SweepReport struct {
	Processed int
	Credited  int
	Skipped   int
	Failed    int
	Errors    []string
}

// Sweep attempts qualification for every pending referral. One referral's
// failure never aborts the pass; failures are counted and the first few
// messages kept for operator visibility.
func (p *Processor) Sweep(ctx context.Context) (SweepReport, error) {
	pending, err := p.repo.ListPending(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list pending referrals: %w", err)
	}

	var report SweepReport
	for _, rec := range pending {
		report.Processed++
		res, err := p.ProcessReferral(ctx, rec.ID)
		if err != nil {
			report.Failed++
			if len(report.Errors) < errorSampleCap {
				report.Errors = append(report.Errors, fmt.Sprintf("referral %s: %v", rec.ID, err))
			}
			continue
		}
		if res.Outcome == OutcomeCredited {
			report.Credited++
		} else {
			report.Skipped++
		}
	}

	if p.logger != nil {
		p.logger.Info("referral sweep finished",
			"processed", report.Processed,
			"credited", report.Credited,
			"skipped", report.Skipped,
			"failed", report.Failed,
		)
	}
	return report, nil
}

func (p *Processor) lockFor(referralID string) *sync.Mutex {
	actual, _ := p.locks.LoadOrStore(referralID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

func rewardRef(referralID string) string {
	return "referral:" + referralID
}
