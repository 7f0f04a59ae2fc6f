package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lendpoint/lendpoint/internal/identity"
	"github.com/lendpoint/lendpoint/internal/notification"
)

// Manager creates, stores, delivers and validates one-time passcodes.
type Manager struct {
	repo     Repository
	notifier notification.Notifier
	now      func() time.Time
}

// NewManager constructs an OTP manager with explicit collaborators.
func NewManager(repo Repository, notifier notification.Notifier) *Manager {
	return &Manager{repo: repo, notifier: notifier, now: time.Now}
}

// CreateAndSend generates a fresh 6-digit code for the user, stores its hash
// and emails the plaintext. Any previously stored codes for the user are
// deleted first, so only the newest code can verify. If delivery fails the
// stored record is kept and ErrDeliveryFailed is returned.
func (m *Manager) CreateAndSend(ctx context.Context, user identity.User) error {
	if user.Email == "" {
		return ErrMissingContactInfo
	}

	plain, err := generateCode()
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), hashCost)
	if err != nil {
		return err
	}

	now := m.now().UTC()
	if err := m.repo.DeleteByUser(ctx, user.ID); err != nil {
		return err
	}
	code := Code{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		HashedCode: hashed,
		ExpiresAt:  now.Add(Expiry),
		CreatedAt:  now,
	}
	if err := m.repo.Create(ctx, code); err != nil {
		return err
	}

	if err := m.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindOTPVerification,
		Destination: user.Email,
		Name:        user.Name,
		Body:        plain,
	}); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	return nil
}

// Verify checks the supplied plaintext against the user's active code.
// A matching code is consumed; a mismatch leaves the record in place so the
// user may retry until expiry or until a new send supersedes it.
func (m *Manager) Verify(ctx context.Context, userID, plainCode string) error {
	code, err := m.repo.FindActive(ctx, userID, m.now().UTC())
	if errors.Is(err, ErrNoActiveCode) {
		return ErrNotFoundOrExpired
	}
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword(code.HashedCode, []byte(plainCode)); err != nil {
		return ErrInvalidCode
	}

	consumed, err := m.repo.Consume(ctx, code.ID)
	if err != nil {
		return err
	}
	if !consumed {
		// A concurrent verification spent the code first.
		return ErrNotFoundOrExpired
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}
