// Package email provides outbound email delivery. Message content is
// rendered by the notification module; this package only transports it.
package email

import "context"

// Sender delivers a rendered HTML email.
type Sender interface {
	Send(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender is used when email delivery is disabled. Sends succeed silently.
type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}
