package identity

import "time"

// User represents a registered borrower account.
type User struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    []byte
	WalletAddress   string
	Nonce           string
	IsEmailVerified bool
	MonthlyIncome   *int64
	TokenVersion    int
	LastLogin       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EmailChange is a pending email-address change awaiting confirmation.
// At most one exists per user; a new request replaces the previous one.
type EmailChange struct {
	ID        string
	UserID    string
	Token     string
	NewEmail  string
	ExpiresAt time.Time
}

// VerificationToken confirms ownership of the address used at registration.
type VerificationToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// ProfileUpdate carries the mutable profile fields. Nil pointers leave the
// current value untouched.
type ProfileUpdate struct {
	Name          *string
	Email         *string
	MonthlyIncome *int64
}
