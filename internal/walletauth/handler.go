package walletauth

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/lendpoint/lendpoint/internal/otp"
)

// Handler exposes the wallet 2FA endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a wallet 2FA HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type initRequest struct {
	WalletAddress string `json:"wallet_address"`
	SignedMessage string `json:"signed_message"`
}

type verifyRequest struct {
	WalletAddress string `json:"wallet_address"`
	OTPCode       string `json:"otp_code"`
}

// Init handles POST /auth/wallet/init: signature check plus OTP dispatch.
func (h *Handler) Init(c *fiber.Ctx) error {
	var req initRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" || req.SignedMessage == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address and signed_message are required")
	}

	message, err := h.service.Initiate(c.UserContext(), req.WalletAddress, req.SignedMessage)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": message})
}

// Verify handles POST /auth/wallet/verify: OTP check plus token issuance.
func (h *Handler) Verify(c *fiber.Ctx) error {
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.WalletAddress == "" {
		return fiber.NewError(http.StatusBadRequest, "wallet_address is required")
	}
	if !isSixDigits(req.OTPCode) {
		return fiber.NewError(http.StatusBadRequest, "otp_code must be exactly 6 digits")
	}

	pair, err := h.service.Verify(c.UserContext(), req.WalletAddress, req.OTPCode)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(pair)
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return fiber.NewError(http.StatusNotFound, "user with this wallet address not found")
	case errors.Is(err, ErrEmailNotVerified):
		return fiber.NewError(http.StatusForbidden, "a verified email address is required for 2FA")
	case errors.Is(err, ErrInvalidSignature):
		return fiber.NewError(http.StatusUnauthorized, "invalid wallet signature or nonce mismatch")
	case errors.Is(err, otp.ErrMissingContactInfo):
		return fiber.NewError(http.StatusBadRequest, "user email address is missing")
	case errors.Is(err, otp.ErrInvalidCode):
		return fiber.NewError(http.StatusBadRequest, "invalid OTP code")
	case errors.Is(err, otp.ErrNotFoundOrExpired):
		return fiber.NewError(http.StatusBadRequest, "OTP expired or not found")
	case errors.Is(err, otp.ErrDeliveryFailed):
		return fiber.NewError(http.StatusBadGateway, "failed to send OTP email")
	default:
		return err
	}
}
