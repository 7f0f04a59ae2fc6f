package loans

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes loan history, repayment and credit-score endpoints for the
// authenticated user.
type Handler struct {
	service *Service
}

// NewHandler constructs a loans HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func callerID(c *fiber.Ctx) (string, error) {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "user not authenticated")
	}
	return userID, nil
}

// History lists the caller's loans, newest first.
func (h *Handler) History(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	loans, err := h.service.History(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"loans": toLoanViews(loans)})
}

// Get returns a single loan owned by the caller.
func (h *Handler) Get(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	loan, err := h.service.Get(c.UserContext(), userID, c.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrLoanNotFound):
			return fiber.NewError(http.StatusNotFound, "loan not found")
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(http.StatusForbidden, "not owner of loan")
		default:
			return err
		}
	}
	return c.Status(http.StatusOK).JSON(toLoanView(loan))
}

type paymentRequest struct {
	Amount int64 `json:"amount"`
}

// RecordPayment registers a repayment against the caller's loan.
func (h *Handler) RecordPayment(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	payment, err := h.service.RecordPayment(c.UserContext(), userID, c.Params("id"), req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			return fiber.NewError(http.StatusBadRequest, "amount must be positive")
		case errors.Is(err, ErrLoanNotFound):
			return fiber.NewError(http.StatusNotFound, "loan not found")
		case errors.Is(err, ErrNotOwner):
			return fiber.NewError(http.StatusForbidden, "not owner of loan")
		default:
			return err
		}
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"payment_id": payment.ID,
		"loan_id":    payment.LoanID,
		"amount":     payment.Amount,
		"paid_at":    payment.PaidAt.Format(time.RFC3339),
	})
}

// CreditScore returns the caller's current score and band.
func (h *Handler) CreditScore(c *fiber.Ctx) error {
	userID, err := callerID(c)
	if err != nil {
		return err
	}
	score, err := h.service.CreditScore(c.UserContext(), userID)
	if err != nil {
		if errors.Is(err, ErrScoreNotFound) {
			return fiber.NewError(http.StatusNotFound, "credit score not found")
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"score":      score.Score,
		"category":   score.Category,
		"updated_at": score.UpdatedAt.Format(time.RFC3339),
	})
}

type loanView struct {
	ID        string        `json:"id"`
	Amount    int64         `json:"amount"`
	Status    string        `json:"status"`
	StartDate string        `json:"start_date"`
	EndDate   *string       `json:"end_date,omitempty"`
	Payments  []paymentView `json:"payments"`
}

type paymentView struct {
	ID     string `json:"id"`
	Amount int64  `json:"amount"`
	PaidAt string `json:"paid_at"`
}

func toLoanView(loan Loan) loanView {
	view := loanView{
		ID:        loan.ID,
		Amount:    loan.Amount,
		Status:    loan.Status,
		StartDate: loan.StartDate.Format(time.RFC3339),
		Payments:  []paymentView{},
	}
	if loan.EndDate != nil {
		end := loan.EndDate.Format(time.RFC3339)
		view.EndDate = &end
	}
	for _, p := range loan.Payments {
		view.Payments = append(view.Payments, paymentView{
			ID:     p.ID,
			Amount: p.Amount,
			PaidAt: p.PaidAt.Format(time.RFC3339),
		})
	}
	return view
}

func toLoanViews(loans []Loan) []loanView {
	views := make([]loanView, 0, len(loans))
	for _, loan := range loans {
		views = append(views, toLoanView(loan))
	}
	return views
}
