package verification

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/roamstay/roamstay/internal/credential"
)

// Handler exposes the OTP and password reset HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a verification HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type otpRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
}

type otpVerifyRequest struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
}

// RequestOTP issues and emails a one-time code.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req otpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SendOTP(c.UserContext(), req.Email, credential.Purpose(req.Purpose)); err != nil {
		return mapVerificationError(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// VerifyOTP consumes a one-time code.
func (h *Handler) VerifyOTP(c *fiber.Ctx) error {
	var req otpVerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.VerifyOTP(c.UserContext(), req.Email, credential.Purpose(req.Purpose), req.Code); err != nil {
		return mapVerificationError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "verified"})
}

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// RequestPasswordReset issues and emails a reset link. The response is the
// same whether or not the account exists.
func (h *Handler) RequestPasswordReset(c *fiber.Ctx) error {
	var req resetRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SendPasswordReset(c.UserContext(), req.Email); err != nil {
		return mapVerificationError(err)
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"status": "sent"})
}

// CheckResetToken lets a client confirm the link is still valid before
// prompting for a new password.
func (h *Handler) CheckResetToken(c *fiber.Ctx) error {
	email, err := h.service.CheckResetToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return mapVerificationError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "valid", "email": email})
}

// ConfirmPasswordReset applies the new password and invalidates the token.
func (h *Handler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req resetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return mapVerificationError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "password_updated"})
}

func mapVerificationError(err error) error {
	switch {
	case errors.Is(err, credential.ErrInvalidOrExpired):
		// One generic message regardless of which failure mode occurred.
		return fiber.NewError(http.StatusUnauthorized, credential.ErrInvalidOrExpired.Error())
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrWeakPassword), errors.Is(err, credential.ErrInvalidPurpose):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
}
