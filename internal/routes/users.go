package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lendpoint/lendpoint/internal/identity"
)

// RegisterUserRoutes wires profile endpoints. Email-change confirmation is
// public since the token arrives via the emailed link.
func RegisterUserRoutes(r, protected fiber.Router, ids *identity.Handler, users identity.Repository) {
	r.Post("/users/verify-change-email", ids.VerifyEmailChange)
	r.Get("/users/verify-change-email", ids.VerifyEmailChange)

	protected.Put("/users/profile", ids.UpdateProfile)
	protected.Get("/me", func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := users.FindByID(c.UserContext(), userID)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":        user.ID,
			"name":           user.Name,
			"email":          user.Email,
			"email_verified": user.IsEmailVerified,
			"wallet_address": user.WalletAddress,
			"monthly_income": user.MonthlyIncome,
			"last_login":     user.LastLogin,
			"created_at":     user.CreatedAt,
		})
	})
}
