package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the audit entry does not exist.
var ErrNotFound = errors.New("audit: entry not found")

// Entry records a security-relevant action taken by or on behalf of a user.
type Entry struct {
	ID        string
	UserID    string
	Action    string
	Details   string
	Timestamp time.Time
}

// Repository persists audit entries.
type Repository interface {
	Create(ctx context.Context, entry Entry) error
	// List returns entries newest-first, paginated, optionally filtered by user.
	List(ctx context.Context, page, limit int, userID string) ([]Entry, error)
	GetByID(ctx context.Context, id string) (Entry, error)
	Update(ctx context.Context, id string, action, details string) (Entry, error)
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed audit repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new audit entry.
func (r *PostgresRepository) Create(ctx context.Context, entry Entry) error {
	_, err := r.db.Exec(ctx, `INSERT INTO audit_logs (id, user_id, action, details, created_at)
        VALUES ($1, $2, $3, $4, $5)`,
		entry.ID, entry.UserID, entry.Action, entry.Details, entry.Timestamp.UTC())
	return err
}

// List returns entries newest-first with page/limit clamped to a minimum of 1.
func (r *PostgresRepository) List(ctx context.Context, page, limit int, userID string) ([]Entry, error) {
	page, limit = clampPage(page, limit)
	offset := (page - 1) * limit

	query := `SELECT id, user_id, action, details, created_at FROM audit_logs`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, userID, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var entry Entry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Details, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.Timestamp = entry.Timestamp.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetByID fetches a single entry.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Entry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, user_id, action, details, created_at FROM audit_logs WHERE id = $1`, id)
	var entry Entry
	err := row.Scan(&entry.ID, &entry.UserID, &entry.Action, &entry.Details, &entry.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	entry.Timestamp = entry.Timestamp.UTC()
	return entry, nil
}

// Update rewrites action/details of an existing entry.
func (r *PostgresRepository) Update(ctx context.Context, id string, action, details string) (Entry, error) {
	cmd, err := r.db.Exec(ctx,
		`UPDATE audit_logs SET action = $1, details = $2 WHERE id = $3`, action, details, id)
	if err != nil {
		return Entry{}, err
	}
	if cmd.RowsAffected() == 0 {
		return Entry{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an entry.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Service records and serves audit entries.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the audit service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record stores a new entry for the user.
func (s *Service) Record(ctx context.Context, userID, action, details string) error {
	return s.repo.Create(ctx, Entry{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: s.now().UTC(),
	})
}

// List returns paginated entries, newest first.
func (s *Service) List(ctx context.Context, page, limit int, userID string) ([]Entry, error) {
	return s.repo.List(ctx, page, limit, userID)
}

// Get fetches a single entry by ID.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	return s.repo.GetByID(ctx, id)
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	return page, limit
}
