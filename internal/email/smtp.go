package email

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"

	"legalaid_backend/platform/config"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	appBaseURL string
	host       string
	port       int
	username   string
	password   string
	fromName   string
	fromEmail  string
}

// NewSMTPSender creates a new SMTPSender from email configuration. The app
// base URL is used for call-to-action links in the rendered templates.
func NewSMTPSender(cfg config.EmailConfig, appBaseURL string) *SMTPSender {
	return &SMTPSender{
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		host:       cfg.GetSMTPHost(),
		port:       cfg.GetSMTPPort(),
		username:   cfg.GetSMTPUsername(),
		password:   cfg.GetSMTPPassword(),
		fromName:   cfg.GetEmailFromName(),
		fromEmail:  cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendMatchOffersEmail(ctx context.Context, toEmail, citizenName, caseType string, newOffers int) error {
	content, err := renderEmailTemplate("match_offers.html", matchOffersEmailData{
		baseEmailData: baseEmailData{
			Title:    subjectMatchOffers,
			Heading:  "New matches for your case",
			CTALabel: "Review matches",
			CTAURL:   s.appBaseURL + "/matches",
		},
		CitizenName: citizenName,
		CaseType:    caseType,
		NewOffers:   newOffers,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectMatchOffers, content)
}

func (s *SMTPSender) SendMatchSelectedEmail(ctx context.Context, toEmail, providerName, caseType string) error {
	subject := fmt.Sprintf(subjectMatchSelectedFmt, caseType)
	content, err := renderEmailTemplate("match_selected.html", matchSelectedEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  "You have been selected",
			CTALabel: "Review assignment",
			CTAURL:   s.appBaseURL + "/assignments",
		},
		ProviderName: providerName,
		CaseType:     caseType,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendMatchAcceptedEmail(ctx context.Context, toEmail, citizenName, providerName, providerPhone string) error {
	subject := fmt.Sprintf(subjectMatchAcceptedFmt, providerName)
	content, err := renderEmailTemplate("match_accepted.html", matchAcceptedEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: "Your case has a provider",
		},
		CitizenName:   citizenName,
		ProviderName:  providerName,
		ProviderPhone: providerPhone,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendMatchDeclinedEmail(ctx context.Context, toEmail, citizenName, providerName, reason string) error {
	subject := fmt.Sprintf(subjectMatchDeclinedFmt, providerName)
	content, err := renderEmailTemplate("match_declined.html", matchDeclinedEmailData{
		baseEmailData: baseEmailData{
			Title:    subject,
			Heading:  "A provider declined your case",
			CTALabel: "View remaining matches",
			CTAURL:   s.appBaseURL + "/matches",
		},
		CitizenName:  citizenName,
		ProviderName: providerName,
		Reason:       reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendMatchExpiredEmail(ctx context.Context, toEmail, providerName, caseType string) error {
	content, err := renderEmailTemplate("match_expired.html", matchExpiredEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectMatchExpired,
			Heading: "Case assigned elsewhere",
		},
		ProviderName: providerName,
		CaseType:     caseType,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectMatchExpired, content)
}

// Compile-time check that SMTPSender implements Sender
var _ Sender = (*SMTPSender)(nil)
var _ Sender = NoopSender{}
