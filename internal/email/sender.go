// Package email provides outbound email delivery for match lifecycle
// notifications.
package email

import "context"

// Sender delivers match lifecycle emails. Implementations render the embedded
// HTML templates and hand the result to a transport.
type Sender interface {
	SendMatchOffersEmail(ctx context.Context, toEmail, citizenName, caseType string, newOffers int) error
	SendMatchSelectedEmail(ctx context.Context, toEmail, providerName, caseType string) error
	SendMatchAcceptedEmail(ctx context.Context, toEmail, citizenName, providerName, providerPhone string) error
	SendMatchDeclinedEmail(ctx context.Context, toEmail, citizenName, providerName, reason string) error
	SendMatchExpiredEmail(ctx context.Context, toEmail, providerName, caseType string) error
}

// NoopSender discards all emails. Used when EMAIL_ENABLED is false so the
// rest of the pipeline behaves identically in development.
type NoopSender struct{}

func (NoopSender) SendMatchOffersEmail(context.Context, string, string, string, int) error {
	return nil
}

func (NoopSender) SendMatchSelectedEmail(context.Context, string, string, string) error {
	return nil
}

func (NoopSender) SendMatchAcceptedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendMatchDeclinedEmail(context.Context, string, string, string, string) error {
	return nil
}

func (NoopSender) SendMatchExpiredEmail(context.Context, string, string, string) error {
	return nil
}
