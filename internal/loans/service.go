package loans

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidAmount indicates a non-positive loan or payment amount.
	ErrInvalidAmount = errors.New("loans: amount must be positive")
	// ErrInvalidStatus indicates an unknown loan status.
	ErrInvalidStatus = errors.New("loans: invalid status")
	// ErrNotOwner indicates the caller does not own the loan.
	ErrNotOwner = errors.New("loans: not owner of loan")
)

// Service exposes loan, repayment and credit-score operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a loans service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateLoan opens an active loan for the user.
func (s *Service) CreateLoan(ctx context.Context, userID string, amount int64) (Loan, error) {
	if amount <= 0 {
		return Loan{}, ErrInvalidAmount
	}
	now := s.now().UTC()
	loan := Loan{
		ID:        uuid.New().String(),
		UserID:    userID,
		Amount:    amount,
		Status:    StatusActive,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateLoan(ctx, loan); err != nil {
		return Loan{}, err
	}
	return loan, nil
}

// History returns the user's loans, newest first, with payments attached.
func (s *Service) History(ctx context.Context, userID string) ([]Loan, error) {
	return s.repo.LoansByUser(ctx, userID)
}

// Get fetches one loan, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, loanID string) (Loan, error) {
	loan, err := s.repo.LoanByID(ctx, loanID)
	if err != nil {
		return Loan{}, err
	}
	if loan.UserID != userID {
		return Loan{}, ErrNotOwner
	}
	return loan, nil
}

// UpdateStatus transitions a loan; completed and defaulted loans get an end date.
func (s *Service) UpdateStatus(ctx context.Context, loanID, status string) (Loan, error) {
	switch status {
	case StatusActive, StatusCompleted, StatusDefaulted:
	default:
		return Loan{}, ErrInvalidStatus
	}
	var endDate *time.Time
	if status == StatusCompleted || status == StatusDefaulted {
		now := s.now().UTC()
		endDate = &now
	}
	return s.repo.UpdateLoanStatus(ctx, loanID, status, endDate)
}

// RecordPayment registers a repayment against the user's loan.
func (s *Service) RecordPayment(ctx context.Context, userID, loanID string, amount int64) (Payment, error) {
	if amount <= 0 {
		return Payment{}, ErrInvalidAmount
	}
	loan, err := s.repo.LoanByID(ctx, loanID)
	if err != nil {
		return Payment{}, err
	}
	if loan.UserID != userID {
		return Payment{}, ErrNotOwner
	}
	payment := Payment{
		ID:     uuid.New().String(),
		LoanID: loanID,
		Amount: amount,
		PaidAt: s.now().UTC(),
	}
	if err := s.repo.RecordPayment(ctx, payment); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// SetCreditScore stores the user's score with its derived category.
func (s *Service) SetCreditScore(ctx context.Context, userID string, score int) (CreditScore, error) {
	record := CreditScore{
		UserID:    userID,
		Score:     score,
		Category:  Category(score),
		UpdatedAt: s.now().UTC(),
	}
	if err := s.repo.UpsertCreditScore(ctx, record); err != nil {
		return CreditScore{}, err
	}
	return record, nil
}

// CreditScore returns the user's current score.
func (s *Service) CreditScore(ctx context.Context, userID string) (CreditScore, error) {
	return s.repo.CreditScoreByUser(ctx, userID)
}
