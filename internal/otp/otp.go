// Package otp issues and verifies short-lived numeric one-time passcodes.
// Codes are stored bcrypt-hashed with a five minute expiry; at most one
// active code exists per user and a code is consumed on first successful use.
package otp

import (
	"errors"
	"time"
)

const (
	// Expiry is how long an issued code stays valid.
	Expiry = 5 * time.Minute

	codeMin  = 100000
	codeMax  = 999999
	hashCost = 12
)

var (
	// ErrMissingContactInfo indicates the user has no email to deliver to.
	ErrMissingContactInfo = errors.New("otp: user has no email address")
	// ErrDeliveryFailed indicates the code was stored but could not be sent.
	ErrDeliveryFailed = errors.New("otp: failed to deliver code")
	// ErrNotFoundOrExpired covers never-requested, expired and already-consumed
	// codes alike so callers cannot probe account state.
	ErrNotFoundOrExpired = errors.New("otp: code expired or not found")
	// ErrInvalidCode indicates the supplied code does not match the stored hash.
	ErrInvalidCode = errors.New("otp: invalid code")
)

// Code is a stored one-time passcode. The plaintext is never persisted.
type Code struct {
	ID         string
	UserID     string
	HashedCode []byte
	ExpiresAt  time.Time
	CreatedAt  time.Time
}
