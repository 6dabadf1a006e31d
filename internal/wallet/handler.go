package wallet

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes wallet HTTP endpoints for balance reads and administrative
// adjustments. Every mutation goes through the ledger; there is no direct
// balance write surface.
type Handler struct {
	ledger Ledger
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(ledger Ledger) *Handler {
	return &Handler{ledger: ledger}
}

type adjustRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
	Actor  string `json:"actor"`
	Ref    string `json:"ref"`
}

type setRequest struct {
	Balance int64  `json:"balance"`
	Reason  string `json:"reason"`
	Actor   string `json:"actor"`
}

type mutationResponse struct {
	EntryID  string `json:"entry_id,omitempty"`
	Previous int64  `json:"previous_balance"`
	Delta    int64  `json:"delta"`
	Balance  int64  `json:"balance"`
}

// Balance returns the current wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	userID := c.Params("userId")
	balance, err := h.ledger.Balance(c.UserContext(), userID)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"user_id":   userID,
		"balance":   balance,
		"timestamp": time.Now().UTC(),
	})
}

// Entries returns the wallet's audit trail.
func (h *Handler) Entries(c *fiber.Ctx) error {
	userID := c.Params("userId")
	entries, err := h.ledger.Entries(c.UserContext(), userID)
	if err != nil {
		return mapLedgerError(err)
	}
	out := make([]fiber.Map, 0, len(entries))
	for _, e := range entries {
		out = append(out, fiber.Map{
			"id":               e.ID,
			"previous_balance": e.Previous,
			"delta":            e.Delta,
			"new_balance":      e.New,
			"reason":           e.Reason,
			"actor":            e.Actor,
			"ref":              e.Ref,
			"at":               e.At,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user_id": userID, "entries": out})
}

// Credit applies an administrative credit.
func (h *Handler) Credit(c *fiber.Ctx) error {
	return h.adjust(c, false)
}

// Debit applies an administrative debit.
func (h *Handler) Debit(c *fiber.Ctx) error {
	return h.adjust(c, true)
}

func (h *Handler) adjust(c *fiber.Ctx, debit bool) error {
	var req adjustRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Actor == "" {
		return fiber.NewError(http.StatusBadRequest, "actor is required")
	}
	userID := c.Params("userId")
	if err := h.ledger.EnsureAccount(c.UserContext(), userID); err != nil {
		return mapLedgerError(err)
	}

	var (
		res Mutation
		err error
	)
	if debit {
		res, err = h.ledger.Debit(c.UserContext(), userID, req.Amount, req.Reason, req.Actor, req.Ref)
	} else {
		res, err = h.ledger.Credit(c.UserContext(), userID, req.Amount, req.Reason, req.Actor, req.Ref)
	}
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(mutationResponse{
		EntryID:  res.EntryID,
		Previous: res.Previous,
		Delta:    res.Delta,
		Balance:  res.New,
	})
}

// Set adjusts the balance to an absolute value through the ledger.
func (h *Handler) Set(c *fiber.Ctx) error {
	var req setRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Actor == "" {
		return fiber.NewError(http.StatusBadRequest, "actor is required")
	}
	userID := c.Params("userId")
	if err := h.ledger.EnsureAccount(c.UserContext(), userID); err != nil {
		return mapLedgerError(err)
	}
	res, err := h.ledger.Set(c.UserContext(), userID, req.Balance, req.Reason, req.Actor)
	if err != nil {
		return mapLedgerError(err)
	}
	return c.Status(http.StatusOK).JSON(mutationResponse{
		EntryID:  res.EntryID,
		Previous: res.Previous,
		Delta:    res.Delta,
		Balance:  res.New,
	})
}

func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInvalidAmount):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrDuplicateEntry):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
