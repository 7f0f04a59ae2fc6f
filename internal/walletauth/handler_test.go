package walletauth

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupApp(t *testing.T) (*fiber.App, *fixture) {
	t.Helper()
	f := newFixture(t, verifiedUser())
	h := NewHandler(f.svc)
	app := fiber.New()
	app.Post("/auth/wallet/init", h.Init)
	app.Post("/auth/wallet/verify", h.Verify)
	return app, f
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	decoded := map[string]any{}
	_ = json.Unmarshal(payload, &decoded)
	return resp.StatusCode, decoded
}

func TestInitRequiresFields(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := postJSON(t, app, "/auth/wallet/init", `{"wallet_address":"0xabc"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for missing signed_message, got %d", status)
	}
	status, _ = postJSON(t, app, "/auth/wallet/init", `{"signed_message":"sig:n0"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for missing wallet_address, got %d", status)
	}
}

func TestVerifyValidatesOTPFormat(t *testing.T) {
	app, _ := setupApp(t)

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		status, _ := postJSON(t, app, "/auth/wallet/verify",
			`{"wallet_address":"0xabc","otp_code":"`+code+`"}`)
		if status != fiber.StatusBadRequest {
			t.Fatalf("expected 400 for otp_code %q, got %d", code, status)
		}
	}
}

func TestInitUnknownWalletReturns404(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := postJSON(t, app, "/auth/wallet/init",
		`{"wallet_address":"0xmissing","signed_message":"sig:n0"}`)
	if status != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestInitInvalidSignatureReturns401(t *testing.T) {
	app, _ := setupApp(t)

	status, _ := postJSON(t, app, "/auth/wallet/init",
		`{"wallet_address":"0xabc","signed_message":"sig:stale"}`)
	if status != fiber.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", status)
	}
}

func TestWalletFlowOverHTTP(t *testing.T) {
	app, f := setupApp(t)

	status, body := postJSON(t, app, "/auth/wallet/init",
		`{"wallet_address":"0xabc","signed_message":"sig:n0"}`)
	if status != fiber.StatusOK {
		t.Fatalf("init: expected 200, got %d (%v)", status, body)
	}
	message, _ := body["message"].(string)
	if !strings.Contains(message, "OTP sent successfully") {
		t.Fatalf("unexpected init message %q", message)
	}

	code := f.otpCode(t)
	status, body = postJSON(t, app, "/auth/wallet/verify",
		`{"wallet_address":"0xabc","otp_code":"`+code+`"}`)
	if status != fiber.StatusOK {
		t.Fatalf("verify: expected 200, got %d (%v)", status, body)
	}
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected token pair, got %v", body)
	}

	// Replay of the consumed code fails closed.
	status, _ = postJSON(t, app, "/auth/wallet/verify",
		`{"wallet_address":"0xabc","otp_code":"`+code+`"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 on replay, got %d", status)
	}
}
