package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("identity: not found")

// Repository persists users and their pending verification records.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByWallet(ctx context.Context, walletAddress string) (User, error)
	UpdateNonce(ctx context.Context, id, nonce string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error)
	UpdateEmail(ctx context.Context, id, email string) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error

	UpsertEmailChange(ctx context.Context, change EmailChange) error
	FindEmailChangeByToken(ctx context.Context, token string) (EmailChange, error)
	DeleteEmailChange(ctx context.Context, id string) error

	CreateVerificationToken(ctx context.Context, token VerificationToken) error
	FindVerificationToken(ctx context.Context, token string) (VerificationToken, error)
	DeleteVerificationTokens(ctx context.Context, userID string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users
        (id, name, email, password_hash, wallet_address, nonce, is_email_verified, monthly_income, token_version, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		userID, user.Name, user.Email, user.PasswordHash, nullable(user.WalletAddress), user.Nonce,
		user.IsEmailVerified, user.MonthlyIncome, user.TokenVersion, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	return err
}

const userColumns = `id, name, email, password_hash, COALESCE(wallet_address, ''), nonce,
    is_email_verified, monthly_income, token_version, last_login, created_at, updated_at`

func (r *PostgresRepository) scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		user      User
		lastLogin *time.Time
	)
	err := row.Scan(&id, &user.Name, &user.Email, &user.PasswordHash, &user.WalletAddress, &user.Nonce,
		&user.IsEmailVerified, &user.MonthlyIncome, &user.TokenVersion, &lastLogin, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.LastLogin = lastLogin
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

// FindByID fetches a user by primary key.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	return r.scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
}

// FindByEmail fetches a user by email address.
func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// FindByWallet fetches a user by wallet address (case-insensitive).
func (r *PostgresRepository) FindByWallet(ctx context.Context, walletAddress string) (User, error) {
	return r.scanUser(r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(wallet_address) = lower($1)`, walletAddress))
}

// UpdateNonce stores a fresh challenge nonce for the user.
func (r *PostgresRepository) UpdateNonce(ctx context.Context, id, nonce string) error {
	return r.execOnUser(ctx, id, `UPDATE users SET nonce = $1, updated_at = now() WHERE id = $2`, nonce)
}

// UpdateProfile applies name/income changes and returns the updated user.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, ErrNotFound
	}
	_, err = r.db.Exec(ctx, `UPDATE users SET
        name = COALESCE($1, name),
        monthly_income = COALESCE($2, monthly_income),
        updated_at = now()
        WHERE id = $3`, update.Name, update.MonthlyIncome, userID)
	if err != nil {
		return User{}, err
	}
	return r.FindByID(ctx, id)
}

// UpdateEmail replaces the stored email address.
func (r *PostgresRepository) UpdateEmail(ctx context.Context, id, email string) error {
	return r.execOnUser(ctx, id, `UPDATE users SET email = $1, updated_at = now() WHERE id = $2`, email)
}

// MarkEmailVerified flips the verification flag.
func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET is_email_verified = true, updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTokenVersion bumps the token version, invalidating issued tokens.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET token_version = $1, updated_at = now() WHERE id = $2`, version, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) execOnUser(ctx context.Context, id, query string, arg any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return ErrNotFound
	}
	cmd, err := r.db.Exec(ctx, query, arg, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertEmailChange stores the pending change, replacing any previous request
// for the same user.
func (r *PostgresRepository) UpsertEmailChange(ctx context.Context, change EmailChange) error {
	_, err := r.db.Exec(ctx, `INSERT INTO email_changes (id, user_id, token, new_email, expires_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id) DO UPDATE SET token = $3, new_email = $4, expires_at = $5`,
		change.ID, change.UserID, change.Token, change.NewEmail, change.ExpiresAt.UTC())
	return err
}

// FindEmailChangeByToken looks up a pending change by its token.
func (r *PostgresRepository) FindEmailChangeByToken(ctx context.Context, token string) (EmailChange, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, token, new_email, expires_at FROM email_changes WHERE token = $1`, token)
	var change EmailChange
	err := row.Scan(&change.ID, &change.UserID, &change.Token, &change.NewEmail, &change.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return EmailChange{}, ErrNotFound
	}
	if err != nil {
		return EmailChange{}, err
	}
	change.ExpiresAt = change.ExpiresAt.UTC()
	return change, nil
}

// DeleteEmailChange removes a consumed or abandoned change record.
func (r *PostgresRepository) DeleteEmailChange(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM email_changes WHERE id = $1`, id)
	return err
}

// CreateVerificationToken stores a registration verification token.
func (r *PostgresRepository) CreateVerificationToken(ctx context.Context, token VerificationToken) error {
	_, err := r.db.Exec(ctx, `INSERT INTO verification_tokens (id, user_id, token, expires_at)
        VALUES ($1, $2, $3, $4)`, token.ID, token.UserID, token.Token, token.ExpiresAt.UTC())
	return err
}

// FindVerificationToken looks up a registration token.
func (r *PostgresRepository) FindVerificationToken(ctx context.Context, token string) (VerificationToken, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, token, expires_at FROM verification_tokens WHERE token = $1`, token)
	var vt VerificationToken
	err := row.Scan(&vt.ID, &vt.UserID, &vt.Token, &vt.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return VerificationToken{}, ErrNotFound
	}
	if err != nil {
		return VerificationToken{}, err
	}
	vt.ExpiresAt = vt.ExpiresAt.UTC()
	return vt, nil
}

// DeleteVerificationTokens removes all registration tokens for a user.
func (r *PostgresRepository) DeleteVerificationTokens(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM verification_tokens WHERE user_id = $1`, userID)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
