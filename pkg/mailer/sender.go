package mailer

import "context"

// Sender is implemented by delivery providers (SMTP, Resend).
type Sender interface {
	// Send delivers a fully prepared Email. To, Subject and HTML are set.
	Send(ctx context.Context, email *Email) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, email *Email) error

// Send calls f.
func (f SenderFunc) Send(ctx context.Context, email *Email) error {
	return f(ctx, email)
}
