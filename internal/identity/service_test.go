package identity

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lendpoint/lendpoint/internal/notification"
)

type captureNotifier struct {
	messages []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, message notification.Message) error {
	n.messages = append(n.messages, message)
	return nil
}

// tokenFromBody extracts the token query parameter from an emailed link.
func tokenFromBody(t *testing.T, body string) string {
	t.Helper()
	idx := strings.LastIndex(body, "token=")
	if idx < 0 {
		t.Fatalf("no token in body %q", body)
	}
	return body[idx+len("token="):]
}

func newTestService() (*Service, Repository, *captureNotifier) {
	repo := NewMemoryRepository()
	notifier := &captureNotifier{}
	return NewService(repo, notifier, "http://localhost:8080"), repo, notifier
}

func TestRegisterAndVerifyEmail(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.IsEmailVerified {
		t.Fatal("new accounts start unverified")
	}
	if len(notifier.messages) != 1 || notifier.messages[0].Kind != notification.KindEmailVerification {
		t.Fatalf("expected one verification email, got %+v", notifier.messages)
	}

	token := tokenFromBody(t, notifier.messages[0].Body)
	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify email: %v", err)
	}

	reloaded, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.IsEmailVerified {
		t.Fatal("expected email to be verified")
	}

	// Token is consumed on use.
	if err := svc.VerifyEmail(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "ada@example.com", "correct horse battery"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "ada@example.com", "another password"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Register(context.Background(), "ada@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestSendVerificationEmailStates(t *testing.T) {
	svc, _, notifier := newTestService()
	ctx := context.Background()

	if err := svc.SendVerificationEmail(ctx, "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	if _, err := svc.Register(ctx, "ada@example.com", "correct horse battery"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SendVerificationEmail(ctx, "ada@example.com"); err != nil {
		t.Fatalf("resend: %v", err)
	}

	token := tokenFromBody(t, notifier.messages[len(notifier.messages)-1].Body)
	if err := svc.VerifyEmail(ctx, token); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.SendVerificationEmail(ctx, "ada@example.com"); !errors.Is(err, ErrAlreadyVerified) {
		t.Fatalf("expected ErrAlreadyVerified, got %v", err)
	}
}

func TestUpdateProfileStagesEmailChange(t *testing.T) {
	svc, repo, notifier := newTestService()
	ctx := context.Background()

	user, err := svc.Register(ctx, "ada@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	name := "Ada Lovelace"
	income := int64(420000)
	newEmail := "ada@newdomain.example"
	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: &name, Email: &newEmail, MonthlyIncome: &income})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}

	// Name and income apply immediately; the email waits for confirmation.
	if updated.Name != name {
		t.Fatalf("expected name %q, got %q", name, updated.Name)
	}
	if updated.MonthlyIncome == nil || *updated.MonthlyIncome != income {
		t.Fatalf("expected income %d, got %v", income, updated.MonthlyIncome)
	}
	if updated.Email != "ada@example.com" {
		t.Fatalf("email must not change before confirmation, got %q", updated.Email)
	}

	last := notifier.messages[len(notifier.messages)-1]
	if last.Kind != notification.KindSystemAlert || last.Destination != newEmail {
		t.Fatalf("expected confirmation sent to new address, got %+v", last)
	}

	token := tokenFromBody(t, last.Body)
	if err := svc.VerifyEmailChange(ctx, token); err != nil {
		t.Fatalf("verify email change: %v", err)
	}

	reloaded, _ := repo.FindByID(ctx, user.ID)
	if reloaded.Email != newEmail {
		t.Fatalf("expected email %q after confirmation, got %q", newEmail, reloaded.Email)
	}

	// A consumed change token cannot be replayed.
	if err := svc.VerifyEmailChange(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken on reuse, got %v", err)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _ := newTestService()
	name := "Nobody"
	if _, err := svc.UpdateProfile(context.Background(), "missing", ProfileUpdate{Name: &name}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestVerifyEmailChangeUnknownToken(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.VerifyEmailChange(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
