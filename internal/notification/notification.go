package notification

import (
	"context"
	"log/slog"
)

const (
	// KindOTPVerification tags one-time passcode delivery for wallet 2FA.
	KindOTPVerification = "otp_verification"
	// KindEmailVerification tags account email verification messages.
	KindEmailVerification = "email_verification"
	// KindSystemAlert tags operational notices such as email-change confirmations.
	KindSystemAlert = "system_alert"
)

// Message describes a notification payload addressed to a user's email.
type Message struct {
	Kind        string
	Destination string
	Name        string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier is a stub implementation that writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"name", message.Name,
		"body", message.Body,
	)
	return nil
}
