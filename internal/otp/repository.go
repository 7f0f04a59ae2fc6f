package otp

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoActiveCode indicates no unexpired code exists for the user.
var ErrNoActiveCode = errors.New("otp: no active code")

// Repository persists one-time passcodes.
type Repository interface {
	// DeleteByUser purges every stored code for the user.
	DeleteByUser(ctx context.Context, userID string) error
	Create(ctx context.Context, code Code) error
	// FindActive returns the most recently created unexpired code for the user.
	FindActive(ctx context.Context, userID string, now time.Time) (Code, error)
	// Consume deletes the code by ID and reports whether a row was removed,
	// so concurrent verifications cannot both spend the same code.
	Consume(ctx context.Context, id string) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed OTP repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// DeleteByUser purges every stored code for the user.
func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM otp_codes WHERE user_id = $1`, userID)
	return err
}

// Create inserts a new hashed code.
func (r *PostgresRepository) Create(ctx context.Context, code Code) error {
	_, err := r.db.Exec(ctx, `INSERT INTO otp_codes (id, user_id, hashed_code, expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		code.ID, code.UserID, code.HashedCode, code.ExpiresAt.UTC(), code.CreatedAt.UTC())
	return err
}

// FindActive returns the latest unexpired code for the user.
func (r *PostgresRepository) FindActive(ctx context.Context, userID string, now time.Time) (Code, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, hashed_code, expires_at, created_at
        FROM otp_codes WHERE user_id = $1 AND expires_at > $2
        ORDER BY created_at DESC LIMIT 1`, userID, now.UTC())
	var code Code
	err := row.Scan(&code.ID, &code.UserID, &code.HashedCode, &code.ExpiresAt, &code.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Code{}, ErrNoActiveCode
	}
	if err != nil {
		return Code{}, err
	}
	code.ExpiresAt = code.ExpiresAt.UTC()
	code.CreatedAt = code.CreatedAt.UTC()
	return code, nil
}

// Consume deletes the code and reports whether it was still present.
func (r *PostgresRepository) Consume(ctx context.Context, id string) (bool, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM otp_codes WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
