package loans

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu       sync.RWMutex
	loans    map[string]Loan
	payments map[string][]Payment // keyed by loan ID
	scores   map[string]CreditScore
}

// NewMemoryRepository builds an in-memory loans store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		loans:    make(map[string]Loan),
		payments: make(map[string][]Payment),
		scores:   make(map[string]CreditScore),
	}
}

func (r *memoryRepository) CreateLoan(_ context.Context, loan Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loans[loan.ID] = loan
	return nil
}

func (r *memoryRepository) LoansByUser(_ context.Context, userID string) ([]Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []Loan{}
	for _, loan := range r.loans {
		if loan.UserID == userID {
			loan.Payments = append([]Payment(nil), r.payments[loan.ID]...)
			result = append(result, loan)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *memoryRepository) LoanByID(_ context.Context, id string) (Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	loan.Payments = append([]Payment(nil), r.payments[id]...)
	return loan, nil
}

func (r *memoryRepository) UpdateLoanStatus(_ context.Context, id, status string, endDate *time.Time) (Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return Loan{}, ErrLoanNotFound
	}
	loan.Status = status
	loan.EndDate = endDate
	loan.UpdatedAt = time.Now().UTC()
	r.loans[id] = loan
	loan.Payments = append([]Payment(nil), r.payments[id]...)
	return loan, nil
}

func (r *memoryRepository) RecordPayment(_ context.Context, payment Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.loans[payment.LoanID]; !ok {
		return ErrLoanNotFound
	}
	r.payments[payment.LoanID] = append(r.payments[payment.LoanID], payment)
	return nil
}

func (r *memoryRepository) UpsertCreditScore(_ context.Context, score CreditScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[score.UserID] = score
	return nil
}

func (r *memoryRepository) CreditScoreByUser(_ context.Context, userID string) (CreditScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	score, ok := r.scores[userID]
	if !ok {
		return CreditScore{}, ErrScoreNotFound
	}
	return score, nil
}
