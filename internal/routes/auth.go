package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lendpoint/lendpoint/internal/auth"
	"github.com/lendpoint/lendpoint/internal/identity"
	"github.com/lendpoint/lendpoint/internal/walletauth"
)

// RegisterAuthRoutes wires registration, email verification, wallet 2FA and
// session endpoints. Logout requires an authenticated caller and registers on
// the protected router.
func RegisterAuthRoutes(r, protected fiber.Router, ids *identity.Handler, sessions *auth.Handler,
	wallet *walletauth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/auth")

	group.Post("/register", ids.Register)
	group.Post("/send-verification", ids.SendVerification)
	group.Post("/verify-email", ids.VerifyEmail)

	walletGroup := group.Group("/wallet")
	if rateLimiter != nil {
		walletGroup.Post("/init", rateLimiter, wallet.Init)
		walletGroup.Post("/verify", rateLimiter, wallet.Verify)
	} else {
		walletGroup.Post("/init", wallet.Init)
		walletGroup.Post("/verify", wallet.Verify)
	}

	group.Post("/refresh", sessions.Refresh)
	protected.Post("/auth/logout", sessions.Logout)
}
