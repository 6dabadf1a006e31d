package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/roamstay/roamstay/internal/wallet"
)

// RegisterWalletRoutes wires wallet balance and admin mutation endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler, idem fiber.Handler) {
	r.Get("/wallets/:userId/balance", h.Balance)
	r.Get("/wallets/:userId/entries", h.Entries)

	if idem != nil {
		r.Post("/wallets/:userId/credit", idem, h.Credit)
		r.Post("/wallets/:userId/debit", idem, h.Debit)
		r.Put("/wallets/:userId/balance", idem, h.Set)
		return
	}
	r.Post("/wallets/:userId/credit", h.Credit)
	r.Post("/wallets/:userId/debit", h.Debit)
	r.Put("/wallets/:userId/balance", h.Set)
}
