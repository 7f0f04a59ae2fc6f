package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lendpoint/lendpoint/internal/loans"
)

// RegisterLoanRoutes wires loan history, repayment and credit-score endpoints.
func RegisterLoanRoutes(r fiber.Router, h *loans.Handler) {
	r.Get("/loans", h.History)
	r.Get("/loans/:id", h.Get)
	r.Post("/loans/:id/payments", h.RecordPayment)
	r.Get("/credit-score", h.CreditScore)
}
