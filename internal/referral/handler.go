package referral

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/roamstay/roamstay/internal/booking"
)

// Handler exposes referral endpoints: record creation, the per-referral and
// per-booking triggers, and the batch sweep.
type Handler struct {
	repo      Repository
	processor *Processor
}

// NewHandler builds a referral HTTP handler.
func NewHandler(repo Repository, processor *Processor) *Handler {
	return &Handler{repo: repo, processor: processor}
}

type createRequest struct {
	ReferrerID     string `json:"referrer_id"`
	ReferredUserID string `json:"referred_user_id"`
}

// Create records a new pending referral relationship.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := uuid.Parse(req.ReferrerID); err != nil {
		return fiber.NewError(http.StatusBadRequest, "referrer_id must be a uuid")
	}
	if _, err := uuid.Parse(req.ReferredUserID); err != nil {
		return fiber.NewError(http.StatusBadRequest, "referred_user_id must be a uuid")
	}

	rec := Record{
		ID:             uuid.NewString(),
		ReferrerID:     req.ReferrerID,
		ReferredUserID: req.ReferredUserID,
		Status:         StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.repo.Create(c.UserContext(), rec); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"id":               rec.ID,
		"referrer_id":      rec.ReferrerID,
		"referred_user_id": rec.ReferredUserID,
		"status":           rec.Status,
	})
}

// Process triggers qualification for one referral.
func (h *Handler) Process(c *fiber.Ctx) error {
	res, err := h.processor.ProcessReferral(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapProcessError(err)
	}
	return c.Status(http.StatusOK).JSON(resultPayload(res))
}

// ProcessBooking triggers qualification from a booking state change.
func (h *Handler) ProcessBooking(c *fiber.Ctx) error {
	res, err := h.processor.ProcessBooking(c.UserContext(), c.Params("bookingId"))
	if err != nil {
		return mapProcessError(err)
	}
	return c.Status(http.StatusOK).JSON(resultPayload(res))
}

// Sweep runs the batch pass over all pending referrals.
func (h *Handler) Sweep(c *fiber.Ctx) error {
	report, err := h.processor.Sweep(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"processed": report.Processed,
		"credited":  report.Credited,
		"skipped":   report.Skipped,
		"failed":    report.Failed,
		"errors":    report.Errors,
	})
}

func resultPayload(res Result) fiber.Map {
	payload := fiber.Map{
		"referral_id": res.ReferralID,
		"outcome":     res.Outcome,
	}
	if res.QualifyingBookingID != "" {
		payload["qualifying_booking_id"] = res.QualifyingBookingID
	}
	return payload
}

func mapProcessError(err error) error {
	if errors.Is(err, ErrReferralNotFound) || errors.Is(err, booking.ErrBookingNotFound) {
		return fiber.NewError(http.StatusNotFound, err.Error())
	}
	return fiber.NewError(http.StatusInternalServerError, err.Error())
}
