package mail

import (
	"context"
	"errors"
	"fmt"
	"io"
)

var (
	ErrNoRecipients = errors.New("mail: no recipients provided")
	ErrNoSender     = errors.New("mail: no sender provided")
	// ErrRejected marks a provider refusal that will not succeed on retry.
	ErrRejected = errors.New("mail: rejected by provider")
)

// Message is a provider-agnostic email.
type Message struct {
	From     string
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
	// Headers are custom headers such as X-Notification-ID.
	Headers map[string]string
}

type Mail interface {
	io.Closer
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures a provider.
type Config struct {
	// Driver is "smtp", "sendgrid" or "noop".
	Driver string
	From   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	SendGridAPIKey  string
	SendGridBaseURL string
}

// New builds the provider named by cfg.Driver.
func New(cfg Config) (Mail, error) {
	switch cfg.Driver {
	case "smtp":
		return NewSMTP(cfg)
	case "sendgrid":
		return NewSendGrid(cfg)
	case "noop", "":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("mail: unsupported driver %q", cfg.Driver)
	}
}

// Noop accepts every message and sends nothing.
type Noop struct{}

func (Noop) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	return ctx.Err()
}

func (Noop) Close() error { return nil }

// runWithContext runs a blocking provider call and returns early when ctx
// ends. The call itself keeps running until the provider returns.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
