package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roamstay/roamstay/internal/referral"
)

// RegisterReferralRoutes wires referral creation and reward processing.
func RegisterReferralRoutes(r fiber.Router, h *referral.Handler, idem fiber.Handler) {
	r.Post("/referrals", h.Create)
	if idem != nil {
		r.Post("/referrals/:id/process", idem, h.Process)
		r.Post("/bookings/:bookingId/referral-check", idem, h.ProcessBooking)
	} else {
		r.Post("/referrals/:id/process", h.Process)
		r.Post("/bookings/:bookingId/referral-check", h.ProcessBooking)
	}
	r.Post("/referrals/sweep", h.Sweep)
}
