package walletauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/lendpoint/lendpoint/internal/audit"
	"github.com/lendpoint/lendpoint/internal/auth"
	"github.com/lendpoint/lendpoint/internal/identity"
	"github.com/lendpoint/lendpoint/internal/otp"
)

var (
	// ErrUserNotFound indicates no account matches the wallet address.
	ErrUserNotFound = errors.New("walletauth: user not found")
	// ErrEmailNotVerified indicates the account lacks a verified email for 2FA.
	ErrEmailNotVerified = errors.New("walletauth: verified email required")
	// ErrInvalidSignature indicates the signed message does not prove control
	// of the wallet for the current nonce.
	ErrInvalidSignature = errors.New("walletauth: invalid signature or nonce mismatch")
)

// TokenIssuer mints a session token pair for a verified user.
type TokenIssuer interface {
	Issue(ctx context.Context, userID string) (auth.TokenPair, error)
}

// Service drives the two-step wallet challenge/response protocol:
// Initiate checks the wallet signature against the stored nonce, rotates the
// nonce and emails an OTP; Verify checks the OTP and issues session tokens.
type Service struct {
	users    identity.Repository
	verifier SignatureVerifier
	nonces   NonceGenerator
	codes    *otp.Manager
	tokens   TokenIssuer
	auditor  *audit.Service
}

// NewService constructs the orchestrator with explicit collaborators.
// auditor may be nil.
func NewService(users identity.Repository, verifier SignatureVerifier, nonces NonceGenerator,
	codes *otp.Manager, tokens TokenIssuer, auditor *audit.Service) *Service {
	return &Service{users: users, verifier: verifier, nonces: nonces, codes: codes, tokens: tokens, auditor: auditor}
}

// Initiate verifies the wallet signature for the user's current nonce,
// rotates the nonce and sends a one-time passcode to the user's email.
//
// The nonce rotation commits before the OTP is dispatched: a stale signature
// can never be replayed, but a delivery failure leaves the client needing a
// fresh signature over the new nonce before retrying.
func (s *Service) Initiate(ctx context.Context, walletAddress, signedMessage string) (string, error) {
	user, err := s.users.FindByWallet(ctx, walletAddress)
	if errors.Is(err, identity.ErrNotFound) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	if user.Email == "" || !user.IsEmailVerified {
		return "", ErrEmailNotVerified
	}

	valid, err := s.verifier.Verify(walletAddress, signedMessage, user.Nonce)
	if err != nil || !valid {
		return "", ErrInvalidSignature
	}

	nonce, err := s.nonces.Generate()
	if err != nil {
		return "", err
	}
	if err := s.users.UpdateNonce(ctx, user.ID, nonce); err != nil {
		return "", err
	}

	if err := s.codes.CreateAndSend(ctx, user); err != nil {
		return "", err
	}

	s.record(ctx, user.ID, "wallet_2fa_initiated", "OTP dispatched for wallet challenge")
	return fmt.Sprintf("OTP sent successfully to %s. It will expire in %d minutes.",
		user.Email, int(otp.Expiry.Minutes())), nil
}

// Verify checks the emailed passcode and, on success, issues a token pair.
// OTP failures pass through unchanged; recovery requires a fresh Initiate.
func (s *Service) Verify(ctx context.Context, walletAddress, otpCode string) (auth.TokenPair, error) {
	user, err := s.users.FindByWallet(ctx, walletAddress)
	if errors.Is(err, identity.ErrNotFound) {
		return auth.TokenPair{}, ErrUserNotFound
	}
	if err != nil {
		return auth.TokenPair{}, err
	}

	if err := s.codes.Verify(ctx, user.ID, otpCode); err != nil {
		return auth.TokenPair{}, err
	}

	pair, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return auth.TokenPair{}, err
	}

	s.record(ctx, user.ID, "wallet_2fa_completed", "session tokens issued")
	return pair, nil
}

func (s *Service) record(ctx context.Context, userID, action, details string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Record(ctx, userID, action, details)
}
