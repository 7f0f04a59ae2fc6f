package loans

import (
	"context"
	"errors"
	"testing"
)

func TestLoanLifecycle(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	loan, err := svc.CreateLoan(ctx, "user-1", 500000)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}
	if loan.Status != StatusActive {
		t.Fatalf("expected active loan, got %s", loan.Status)
	}
	if loan.EndDate != nil {
		t.Fatal("active loan must not carry an end date")
	}

	if _, err := svc.RecordPayment(ctx, "user-1", loan.ID, 100000); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	completed, err := svc.UpdateStatus(ctx, loan.ID, StatusCompleted)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if completed.EndDate == nil {
		t.Fatal("completed loan must carry an end date")
	}
	if len(completed.Payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(completed.Payments))
	}
}

func TestLoanOwnership(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	loan, err := svc.CreateLoan(ctx, "user-1", 500000)
	if err != nil {
		t.Fatalf("create loan: %v", err)
	}

	if _, err := svc.Get(ctx, "user-2", loan.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.RecordPayment(ctx, "user-2", loan.ID, 100); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner for payment, got %v", err)
	}
}

func TestLoanValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.CreateLoan(ctx, "user-1", 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "loan-x", "frozen"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := svc.Get(ctx, "user-1", "missing"); !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	first, _ := svc.CreateLoan(ctx, "user-1", 100)
	second, _ := svc.CreateLoan(ctx, "user-1", 200)
	// Force distinct creation order when timestamps collide.
	if !second.CreatedAt.After(first.CreatedAt) {
		second.CreatedAt = first.CreatedAt.Add(1)
		if err := repo.CreateLoan(ctx, second); err != nil {
			t.Fatalf("reseed: %v", err)
		}
	}

	loans, err := svc.History(ctx, "user-1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(loans) != 2 {
		t.Fatalf("expected 2 loans, got %d", len(loans))
	}
	if loans[0].ID != second.ID {
		t.Fatalf("expected newest loan first, got %s", loans[0].ID)
	}
}

func TestCreditScoreBands(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{300, "Poor"},
		{579, "Poor"},
		{580, "Fair"},
		{669, "Fair"},
		{670, "Good"},
		{739, "Good"},
		{740, "Very Good"},
		{799, "Very Good"},
		{800, "Excellent"},
		{850, "Excellent"},
	}
	for _, tc := range cases {
		if got := Category(tc.score); got != tc.want {
			t.Errorf("Category(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestCreditScoreUpsert(t *testing.T) {
	svc := NewService(NewMemoryRepository())
	ctx := context.Background()

	if _, err := svc.CreditScore(ctx, "user-1"); !errors.Is(err, ErrScoreNotFound) {
		t.Fatalf("expected ErrScoreNotFound, got %v", err)
	}

	if _, err := svc.SetCreditScore(ctx, "user-1", 650); err != nil {
		t.Fatalf("set score: %v", err)
	}
	updated, err := svc.SetCreditScore(ctx, "user-1", 760)
	if err != nil {
		t.Fatalf("update score: %v", err)
	}
	if updated.Category != "Very Good" {
		t.Fatalf("expected Very Good, got %s", updated.Category)
	}

	current, err := svc.CreditScore(ctx, "user-1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if current.Score != 760 {
		t.Fatalf("expected latest score 760, got %d", current.Score)
	}
}
