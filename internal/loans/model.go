package loans

import "time"

// Loan statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusDefaulted = "defaulted"
)

// Loan is a borrower's loan record. Amounts are minor currency units.
type Loan struct {
	ID        string
	UserID    string
	Amount    int64
	Status    string
	StartDate time.Time
	EndDate   *time.Time
	Payments  []Payment
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment is a repayment made against a loan.
type Payment struct {
	ID     string
	LoanID string
	Amount int64
	PaidAt time.Time
}

// CreditScore is a user's current score with its derived category band.
type CreditScore struct {
	UserID    string
	Score     int
	Category  string
	UpdatedAt time.Time
}

// Category maps a numeric score to its band.
func Category(score int) string {
	switch {
	case score < 580:
		return "Poor"
	case score < 670:
		return "Fair"
	case score < 740:
		return "Good"
	case score < 800:
		return "Very Good"
	default:
		return "Excellent"
	}
}
