package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes registration, email verification and profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles password registration with a verification email.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "email and password are required")
	}
	user, err := h.service.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			return fiber.NewError(http.StatusBadRequest, "user already exists")
		case errors.Is(err, ErrWeakPassword):
			return fiber.NewError(http.StatusBadRequest, "password too short")
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Please check your email to verify your account.",
		"user_id": user.ID,
	})
}

// SendVerification reissues the email verification token.
func (h *Handler) SendVerification(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" {
		return fiber.NewError(http.StatusBadRequest, "email is required")
	}
	if err := h.service.SendVerificationEmail(c.UserContext(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return fiber.NewError(http.StatusNotFound, "user not found")
		case errors.Is(err, ErrAlreadyVerified):
			return fiber.NewError(http.StatusBadRequest, "email is already verified")
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Verification email sent successfully"})
}

// VerifyEmail confirms the registration token.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token is required")
	}
	if err := h.service.VerifyEmail(c.UserContext(), req.Token); err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			return fiber.NewError(http.StatusBadRequest, "invalid or expired token")
		case errors.Is(err, ErrUserNotFound):
			return fiber.NewError(http.StatusNotFound, "user not found")
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Email verified successfully"})
}

type updateProfileRequest struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	MonthlyIncome *int64  `json:"monthly_income"`
}

// UpdateProfile applies profile changes for the authenticated user. An email
// change is staged behind a confirmation link rather than applied directly.
func (h *Handler) UpdateProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return fiber.NewError(http.StatusUnauthorized, "user not authenticated")
	}
	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Name != nil && *req.Name == "" {
		return fiber.NewError(http.StatusBadRequest, "name must not be empty")
	}
	if req.MonthlyIncome != nil && *req.MonthlyIncome < 0 {
		return fiber.NewError(http.StatusBadRequest, "monthly_income must be non-negative")
	}

	user, err := h.service.UpdateProfile(c.UserContext(), userID, ProfileUpdate{
		Name:          req.Name,
		Email:         req.Email,
		MonthlyIncome: req.MonthlyIncome,
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": "Profile updated successfully",
		"user": fiber.Map{
			"id":             user.ID,
			"name":           user.Name,
			"email":          user.Email,
			"monthly_income": user.MonthlyIncome,
			"email_verified": user.IsEmailVerified,
		},
	})
}

// VerifyEmailChange applies a staged email change.
func (h *Handler) VerifyEmailChange(c *fiber.Ctx) error {
	var req struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.Token == "" {
		// Also accept the token as a query parameter from the emailed link.
		req.Token = c.Query("token")
	}
	if req.Token == "" {
		return fiber.NewError(http.StatusBadRequest, "token is required")
	}
	if err := h.service.VerifyEmailChange(c.UserContext(), req.Token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return fiber.NewError(http.StatusBadRequest, "invalid or expired token")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Email updated successfully"})
}
