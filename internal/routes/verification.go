package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roamstay/roamstay/internal/verification"
)

// RegisterVerificationRoutes wires OTP and password-reset endpoints. The rate
// limiter guards only the endpoints that trigger outbound mail.
func RegisterVerificationRoutes(r fiber.Router, h *verification.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/verification")
	if rateLimiter != nil {
		group.Post("/otp", rateLimiter, h.RequestOTP)
		group.Post("/password-reset", rateLimiter, h.RequestPasswordReset)
	} else {
		group.Post("/otp", h.RequestOTP)
		group.Post("/password-reset", h.RequestPasswordReset)
	}
	group.Post("/otp/verify", h.VerifyOTP)
	group.Get("/password-reset/:token", h.CheckResetToken)
	group.Post("/password-reset/confirm", h.ConfirmPasswordReset)
}
