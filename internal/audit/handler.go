package audit

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes audit log read endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an audit HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List returns paginated audit entries, optionally filtered by user_id.
func (h *Handler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "10"))
	userID := c.Query("user_id")

	entries, err := h.service.List(c.UserContext(), page, limit, userID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"logs": toViews(entries)})
}

// Get returns one audit entry by ID.
func (h *Handler) Get(c *fiber.Ctx) error {
	entry, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "audit log not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(toView(entry))
}

type entryView struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toView(entry Entry) entryView {
	return entryView{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Details:   entry.Details,
		Timestamp: entry.Timestamp.Format(time.RFC3339),
	}
}

func toViews(entries []Entry) []entryView {
	views := make([]entryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, toView(entry))
	}
	return views
}
