package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/lendpoint/lendpoint/internal/notification"
)

const (
	minPasswordLength      = 8
	verificationTokenTTL   = 24 * time.Hour
	emailChangeTTL         = 10 * time.Minute
	verificationTokenBytes = 16
)

var (
	// ErrEmailTaken indicates a registration attempt with an existing address.
	ErrEmailTaken = errors.New("identity: email already registered")
	// ErrUserNotFound indicates no account matches the lookup key.
	ErrUserNotFound = errors.New("identity: user not found")
	// ErrAlreadyVerified indicates the email address is verified already.
	ErrAlreadyVerified = errors.New("identity: email already verified")
	// ErrInvalidToken covers unknown and expired verification tokens alike.
	ErrInvalidToken = errors.New("identity: invalid or expired token")
	// ErrWeakPassword indicates the password fails the minimum length check.
	ErrWeakPassword = errors.New("identity: password too short")
)

// Service manages account lifecycle: registration, email verification and
// profile updates with email-change confirmation.
type Service struct {
	repo     Repository
	notifier notification.Notifier
	appURL   string
	now      func() time.Time
}

// NewService creates an identity service with explicit collaborators.
func NewService(repo Repository, notifier notification.Notifier, appURL string) *Service {
	return &Service{repo: repo, notifier: notifier, appURL: appURL, now: time.Now}
}

// Register creates an unverified account and emails a verification token.
func (s *Service) Register(ctx context.Context, email, password string) (User, error) {
	if len(password) < minPasswordLength {
		return User{}, ErrWeakPassword
	}
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	if err := s.issueVerification(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SendVerificationEmail reissues a verification token for an unverified account.
func (s *Service) SendVerificationEmail(ctx context.Context, email string) error {
	user, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return ErrAlreadyVerified
	}
	return s.issueVerification(ctx, user)
}

func (s *Service) issueVerification(ctx context.Context, user User) error {
	if err := s.repo.DeleteVerificationTokens(ctx, user.ID); err != nil {
		return err
	}
	token, err := randomToken()
	if err != nil {
		return err
	}
	vt := VerificationToken{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		ExpiresAt: s.now().UTC().Add(verificationTokenTTL),
	}
	if err := s.repo.CreateVerificationToken(ctx, vt); err != nil {
		return err
	}
	return s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindEmailVerification,
		Destination: user.Email,
		Name:        user.Name,
		Body:        fmt.Sprintf("Verify your email: %s/auth/verify-email?token=%s", s.appURL, token),
	})
}

// VerifyEmail confirms the address that received the token and consumes it.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	vt, err := s.repo.FindVerificationToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !s.now().UTC().Before(vt.ExpiresAt) {
		return ErrInvalidToken
	}
	if err := s.repo.MarkEmailVerified(ctx, vt.UserID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.repo.DeleteVerificationTokens(ctx, vt.UserID)
}

// UpdateProfile applies name and income changes immediately. An email change
// is staged behind a confirmation token instead of taking effect here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (User, error) {
	current, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}

	if update.Email != nil && *update.Email != current.Email {
		if err := s.stageEmailChange(ctx, current, *update.Email, update.Name); err != nil {
			return User{}, err
		}
	}

	user, err := s.repo.UpdateProfile(ctx, userID, ProfileUpdate{
		Name:          update.Name,
		MonthlyIncome: update.MonthlyIncome,
	})
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func (s *Service) stageEmailChange(ctx context.Context, user User, newEmail string, newName *string) error {
	token, err := randomToken()
	if err != nil {
		return err
	}
	change := EmailChange{
		ID:        uuid.New().String(),
		UserID:    user.ID,
		Token:     token,
		NewEmail:  newEmail,
		ExpiresAt: s.now().UTC().Add(emailChangeTTL),
	}
	if err := s.repo.UpsertEmailChange(ctx, change); err != nil {
		return err
	}
	name := user.Name
	if newName != nil {
		name = *newName
	}
	// Confirmation goes to the new address: it proves control of that inbox.
	return s.notifier.Send(ctx, notification.Message{
		Kind:        notification.KindSystemAlert,
		Destination: newEmail,
		Name:        name,
		Body:        fmt.Sprintf("Confirm your new email address: %s/users/verify-change-email?token=%s", s.appURL, token),
	})
}

// VerifyEmailChange applies a staged email change and consumes its token.
func (s *Service) VerifyEmailChange(ctx context.Context, token string) error {
	change, err := s.repo.FindEmailChangeByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return ErrInvalidToken
	}
	if err != nil {
		return err
	}
	if !s.now().UTC().Before(change.ExpiresAt) {
		return ErrInvalidToken
	}
	if err := s.repo.UpdateEmail(ctx, change.UserID, change.NewEmail); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return s.repo.DeleteEmailChange(ctx, change.ID)
}

func randomToken() (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
