package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lendpoint/lendpoint/internal/audit"
)

// RegisterAuditRoutes wires audit log read endpoints.
func RegisterAuditRoutes(r fiber.Router, h *audit.Handler) {
	r.Get("/audit", h.List)
	r.Get("/audit/:id", h.Get)
}
