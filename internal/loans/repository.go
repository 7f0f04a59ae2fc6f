package loans

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrLoanNotFound indicates the loan does not exist.
	ErrLoanNotFound = errors.New("loans: loan not found")
	// ErrScoreNotFound indicates no credit score is recorded for the user.
	ErrScoreNotFound = errors.New("loans: credit score not found")
)

// Repository persists loans, payments and credit scores.
type Repository interface {
	CreateLoan(ctx context.Context, loan Loan) error
	LoansByUser(ctx context.Context, userID string) ([]Loan, error)
	LoanByID(ctx context.Context, id string) (Loan, error)
	UpdateLoanStatus(ctx context.Context, id, status string, endDate *time.Time) (Loan, error)
	RecordPayment(ctx context.Context, payment Payment) error
	UpsertCreditScore(ctx context.Context, score CreditScore) error
	CreditScoreByUser(ctx context.Context, userID string) (CreditScore, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed loans repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateLoan inserts a new loan.
func (r *PostgresRepository) CreateLoan(ctx context.Context, loan Loan) error {
	_, err := r.db.Exec(ctx, `INSERT INTO loans (id, user_id, amount, status, start_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		loan.ID, loan.UserID, loan.Amount, loan.Status, loan.StartDate.UTC(), loan.CreatedAt.UTC(), loan.UpdatedAt.UTC())
	return err
}

// LoansByUser returns all loans for the user, newest first, with payments.
func (r *PostgresRepository) LoansByUser(ctx context.Context, userID string) ([]Loan, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, amount, status, start_date, end_date, created_at, updated_at
        FROM loans WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []Loan{}
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, err
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range loans {
		payments, err := r.paymentsByLoan(ctx, loans[i].ID)
		if err != nil {
			return nil, err
		}
		loans[i].Payments = payments
	}
	return loans, nil
}

// LoanByID fetches one loan with its payments.
func (r *PostgresRepository) LoanByID(ctx context.Context, id string) (Loan, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, amount, status, start_date, end_date, created_at, updated_at
        FROM loans WHERE id = $1`, id)
	loan, err := scanLoan(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Loan{}, ErrLoanNotFound
	}
	if err != nil {
		return Loan{}, err
	}
	loan.Payments, err = r.paymentsByLoan(ctx, loan.ID)
	return loan, err
}

// UpdateLoanStatus sets the loan status and optional end date.
func (r *PostgresRepository) UpdateLoanStatus(ctx context.Context, id, status string, endDate *time.Time) (Loan, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE loans SET status = $1, end_date = $2, updated_at = now() WHERE id = $3`,
		status, endDate, id)
	if err != nil {
		return Loan{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Loan{}, ErrLoanNotFound
	}
	return r.LoanByID(ctx, id)
}

// RecordPayment inserts a repayment row.
func (r *PostgresRepository) RecordPayment(ctx context.Context, payment Payment) error {
	_, err := r.db.Exec(ctx, `INSERT INTO payments (id, loan_id, amount, paid_at)
        VALUES ($1, $2, $3, $4)`, payment.ID, payment.LoanID, payment.Amount, payment.PaidAt.UTC())
	return err
}

func (r *PostgresRepository) paymentsByLoan(ctx context.Context, loanID string) ([]Payment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, loan_id, amount, paid_at FROM payments WHERE loan_id = $1 ORDER BY paid_at`, loanID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []Payment{}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Amount, &p.PaidAt); err != nil {
			return nil, err
		}
		p.PaidAt = p.PaidAt.UTC()
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// UpsertCreditScore writes the user's score and band.
func (r *PostgresRepository) UpsertCreditScore(ctx context.Context, score CreditScore) error {
	_, err := r.db.Exec(ctx, `INSERT INTO credit_scores (user_id, score, category, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id) DO UPDATE SET score = $2, category = $3, updated_at = $4`,
		score.UserID, score.Score, score.Category, score.UpdatedAt.UTC())
	return err
}

// CreditScoreByUser fetches the user's current score.
func (r *PostgresRepository) CreditScoreByUser(ctx context.Context, userID string) (CreditScore, error) {
	row := r.db.QueryRow(ctx,
		`SELECT user_id, score, category, updated_at FROM credit_scores WHERE user_id = $1`, userID)
	var score CreditScore
	err := row.Scan(&score.UserID, &score.Score, &score.Category, &score.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CreditScore{}, ErrScoreNotFound
	}
	if err != nil {
		return CreditScore{}, err
	}
	score.UpdatedAt = score.UpdatedAt.UTC()
	return score, nil
}

func scanLoan(row pgx.Row) (Loan, error) {
	var loan Loan
	err := row.Scan(&loan.ID, &loan.UserID, &loan.Amount, &loan.Status,
		&loan.StartDate, &loan.EndDate, &loan.CreatedAt, &loan.UpdatedAt)
	if err != nil {
		return Loan{}, err
	}
	loan.StartDate = loan.StartDate.UTC()
	loan.CreatedAt = loan.CreatedAt.UTC()
	loan.UpdatedAt = loan.UpdatedAt.UTC()
	return loan, nil
}
