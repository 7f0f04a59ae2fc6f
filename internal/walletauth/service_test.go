package walletauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/lendpoint/lendpoint/internal/audit"
	"github.com/lendpoint/lendpoint/internal/auth"
	"github.com/lendpoint/lendpoint/internal/identity"
	"github.com/lendpoint/lendpoint/internal/notification"
	"github.com/lendpoint/lendpoint/internal/otp"
)

// nonceCheckVerifier accepts a signature of the form "sig:<nonce>".
type nonceCheckVerifier struct{}

func (nonceCheckVerifier) Verify(_, signedMessage, nonce string) (bool, error) {
	return signedMessage == "sig:"+nonce, nil
}

type sequenceNonces struct {
	n int
}

func (g *sequenceNonces) Generate() (string, error) {
	g.n++
	return fmt.Sprintf("n%d", g.n), nil
}

type fakeIssuer struct {
	issued []string
}

func (f *fakeIssuer) Issue(_ context.Context, userID string) (auth.TokenPair, error) {
	f.issued = append(f.issued, userID)
	return auth.TokenPair{AccessToken: "access-" + userID, RefreshToken: "refresh-" + userID}, nil
}

type captureNotifier struct {
	messages []notification.Message
}

func (n *captureNotifier) Send(_ context.Context, message notification.Message) error {
	n.messages = append(n.messages, message)
	return nil
}

type fixture struct {
	users    identity.Repository
	notifier *captureNotifier
	issuer   *fakeIssuer
	svc      *Service
}

func newFixture(t *testing.T, user identity.User) *fixture {
	t.Helper()
	users := identity.NewMemoryRepository()
	if user.ID != "" {
		if err := users.Create(context.Background(), user); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	notifier := &captureNotifier{}
	issuer := &fakeIssuer{}
	svc := NewService(users, nonceCheckVerifier{}, &sequenceNonces{},
		otp.NewManager(otp.NewMemoryRepository(), notifier), issuer,
		audit.NewService(audit.NewMemoryRepository()))
	return &fixture{users: users, notifier: notifier, issuer: issuer, svc: svc}
}

func (f *fixture) otpCode(t *testing.T) string {
	t.Helper()
	for i := len(f.messages()) - 1; i >= 0; i-- {
		if f.messages()[i].Kind == notification.KindOTPVerification {
			return f.messages()[i].Body
		}
	}
	t.Fatal("no OTP notification captured")
	return ""
}

func (f *fixture) messages() []notification.Message {
	return f.notifier.messages
}

func verifiedUser() identity.User {
	return identity.User{
		ID:              "user-1",
		Name:            "Ada",
		Email:           "ada@example.com",
		WalletAddress:   "0xabc",
		Nonce:           "n0",
		IsEmailVerified: true,
	}
}

func TestInitiateRotatesNonceAndSendsOTP(t *testing.T) {
	f := newFixture(t, verifiedUser())
	ctx := context.Background()

	message, err := f.svc.Initiate(ctx, "0xabc", "sig:n0")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if !strings.Contains(message, "5 minutes") {
		t.Fatalf("expected expiry window in message, got %q", message)
	}

	user, err := f.users.FindByWallet(ctx, "0xabc")
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if user.Nonce == "n0" {
		t.Fatal("expected nonce to rotate on successful initiation")
	}
	if got := len(f.messages()); got != 1 {
		t.Fatalf("expected exactly one OTP send, got %d", got)
	}
}

func TestInitiateInvalidSignature(t *testing.T) {
	f := newFixture(t, verifiedUser())
	ctx := context.Background()

	_, err := f.svc.Initiate(ctx, "0xabc", "sig:wrong-nonce")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	user, _ := f.users.FindByWallet(ctx, "0xabc")
	if user.Nonce != "n0" {
		t.Fatalf("nonce must not rotate on invalid signature, got %q", user.Nonce)
	}
	if len(f.messages()) != 0 {
		t.Fatalf("expected no email on invalid signature, got %d", len(f.messages()))
	}
}

func TestInitiateUnknownWallet(t *testing.T) {
	f := newFixture(t, identity.User{})

	if _, err := f.svc.Initiate(context.Background(), "0xmissing", "sig:n0"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.messages()) != 0 {
		t.Fatal("expected no side effects for unknown wallet")
	}
}

func TestInitiateUnverifiedEmail(t *testing.T) {
	user := verifiedUser()
	user.IsEmailVerified = false
	f := newFixture(t, user)
	ctx := context.Background()

	if _, err := f.svc.Initiate(ctx, "0xabc", "sig:n0"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}

	reloaded, _ := f.users.FindByWallet(ctx, "0xabc")
	if reloaded.Nonce != "n0" {
		t.Fatal("no state mutation expected when email is unverified")
	}
}

func TestInitiateMissingEmail(t *testing.T) {
	user := verifiedUser()
	user.Email = ""
	f := newFixture(t, user)

	if _, err := f.svc.Initiate(context.Background(), "0xabc", "sig:n0"); !errors.Is(err, ErrEmailNotVerified) {
		t.Fatalf("expected ErrEmailNotVerified, got %v", err)
	}
}

func TestVerifyUnknownWallet(t *testing.T) {
	f := newFixture(t, identity.User{})

	if _, err := f.svc.Verify(context.Background(), "0xmissing", "123456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if len(f.issuer.issued) != 0 {
		t.Fatal("no tokens should be issued for unknown wallet")
	}
}

func TestVerifyWithoutInitiation(t *testing.T) {
	f := newFixture(t, verifiedUser())

	if _, err := f.svc.Verify(context.Background(), "0xabc", "123456"); !errors.Is(err, otp.ErrNotFoundOrExpired) {
		t.Fatalf("expected otp.ErrNotFoundOrExpired, got %v", err)
	}
}

func TestFullChallengeResponseFlow(t *testing.T) {
	f := newFixture(t, verifiedUser())
	ctx := context.Background()

	if _, err := f.svc.Initiate(ctx, "0xabc", "sig:n0"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	code := f.otpCode(t)

	pair, err := f.svc.Verify(ctx, "0xabc", code)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if pair.AccessToken != "access-user-1" || pair.RefreshToken != "refresh-user-1" {
		t.Fatalf("unexpected token pair %+v", pair)
	}

	// Replaying the consumed code must fail.
	if _, err := f.svc.Verify(ctx, "0xabc", code); !errors.Is(err, otp.ErrNotFoundOrExpired) {
		t.Fatalf("expected otp.ErrNotFoundOrExpired on replay, got %v", err)
	}

	// The rotated nonce invalidates the original signature for a new round.
	if _, err := f.svc.Initiate(ctx, "0xabc", "sig:n0"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature with stale nonce, got %v", err)
	}
	user, _ := f.users.FindByWallet(ctx, "0xabc")
	if _, err := f.svc.Initiate(ctx, "0xabc", "sig:"+user.Nonce); err != nil {
		t.Fatalf("initiate with fresh nonce: %v", err)
	}
}

func TestVerifyWrongCodeThenCorrect(t *testing.T) {
	f := newFixture(t, verifiedUser())
	ctx := context.Background()

	if _, err := f.svc.Initiate(ctx, "0xabc", "sig:n0"); err != nil {
		t.Fatalf("initiate: %v", err)
	}
	code := f.otpCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := f.svc.Verify(ctx, "0xabc", wrong); !errors.Is(err, otp.ErrInvalidCode) {
		t.Fatalf("expected otp.ErrInvalidCode, got %v", err)
	}
	if _, err := f.svc.Verify(ctx, "0xabc", code); err != nil {
		t.Fatalf("correct code after mismatch should succeed: %v", err)
	}
}
