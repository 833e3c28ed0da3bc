// Package notification turns match lifecycle events into outbox-backed
// deliveries. Domain modules publish events and stay unaware of email
// providers, message templates, or gateway credentials; this module
// subscribes, resolves contact details, and enqueues durable outbox rows
// that the scheduler worker later dispatches.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/email"
	"legalaid_backend/internal/events"
	notificationoutbox "legalaid_backend/internal/notification/outbox"
	"legalaid_backend/platform/logger"
	"legalaid_backend/platform/phone"
)

// WhatsAppSender sends WhatsApp messages to an E.164 phone number.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// Directory resolves cases, providers and contact details for recipients.
type Directory interface {
	GetCase(ctx context.Context, id uuid.UUID) (directoryrepo.CaseView, error)
	GetProvider(ctx context.Context, id uuid.UUID) (directoryrepo.ProviderView, error)
	GetContact(ctx context.Context, userID uuid.UUID) (directoryrepo.Contact, error)
}

const (
	channelEmail    = "email"
	channelWhatsApp = "whatsapp"

	templateMatchOffers   = "match_offers"
	templateMatchSelected = "match_selected"
	templateMatchAccepted = "match_accepted"
	templateMatchDeclined = "match_declined"
	templateMatchExpired  = "match_expired"
	templateWhatsAppSend  = "whatsapp_send"

	maxOutboxRetryAttempts = 5
	outboxRetryBaseDelay   = time.Minute
	outboxRetryMaxDelay    = 60 * time.Minute

	waMatchOffersFmt   = "Hello %s, we found %d new legal aid provider(s) for your %s case. Log in to review and select one."
	waMatchSelectedFmt = "Hello %s, a citizen selected you for a %s case. Log in to accept or decline the assignment."
	waMatchAcceptedFmt = "Hello %s, %s accepted your case and is now your legal aid provider."
)

// errInvalidPayload marks delivery failures that no retry can fix. Wrap it
// with the unmarshal detail so errors.Is still matches.
var errInvalidPayload = errors.New("invalid payload")

// Module handles all notification-related event subscriptions.
type Module struct {
	directory Directory
	sender    email.Sender
	whatsapp  WhatsAppSender
	outbox    *notificationoutbox.Repository
	log       *logger.Logger
}

// New creates a new notification module.
func New(directory Directory, sender email.Sender, outbox *notificationoutbox.Repository, log *logger.Logger) *Module {
	return &Module{
		directory: directory,
		sender:    sender,
		outbox:    outbox,
		log:       log,
	}
}

// SetWhatsAppSender injects the WhatsApp gateway client. When absent,
// whatsapp outbox rows are never enqueued.
func (m *Module) SetWhatsAppSender(sender WhatsAppSender) { m.whatsapp = sender }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.MatchGenerated{}.EventName(), m)
	bus.Subscribe(events.MatchSelected{}.EventName(), m)
	bus.Subscribe(events.MatchAccepted{}.EventName(), m)
	bus.Subscribe(events.MatchRejected{}.EventName(), m)
	bus.Subscribe(events.MatchExpired{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.MatchGenerated:
		return m.handleMatchGenerated(ctx, e)
	case events.MatchSelected:
		return m.handleMatchSelected(ctx, e)
	case events.MatchAccepted:
		return m.handleMatchAccepted(ctx, e)
	case events.MatchRejected:
		return m.handleMatchRejected(ctx, e)
	case events.MatchExpired:
		return m.handleMatchExpired(ctx, e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

// =============================================================================
// Outbox payloads
// =============================================================================

type matchOffersPayload struct {
	ToEmail     string `json:"toEmail"`
	CitizenName string `json:"citizenName"`
	CaseType    string `json:"caseType"`
	NewOffers   int    `json:"newOffers"`
}

type matchSelectedPayload struct {
	ToEmail      string `json:"toEmail"`
	ProviderName string `json:"providerName"`
	CaseType     string `json:"caseType"`
}

type matchAcceptedPayload struct {
	ToEmail       string `json:"toEmail"`
	CitizenName   string `json:"citizenName"`
	ProviderName  string `json:"providerName"`
	ProviderPhone string `json:"providerPhone"`
}

type matchDeclinedPayload struct {
	ToEmail      string `json:"toEmail"`
	CitizenName  string `json:"citizenName"`
	ProviderName string `json:"providerName"`
	Reason       string `json:"reason"`
}

type matchExpiredPayload struct {
	ToEmail      string `json:"toEmail"`
	ProviderName string `json:"providerName"`
	CaseType     string `json:"caseType"`
}

type whatsAppSendPayload struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// =============================================================================
// Event handlers
// =============================================================================

func (m *Module) handleMatchGenerated(ctx context.Context, e events.MatchGenerated) error {
	caseView, err := m.directory.GetCase(ctx, e.CaseID)
	if err != nil {
		return err
	}
	contact, err := m.directory.GetContact(ctx, e.CitizenID)
	if err != nil {
		return err
	}

	if err := m.enqueueEmail(ctx, templateMatchOffers, matchOffersPayload{
		ToEmail:     contact.Email,
		CitizenName: contact.Name,
		CaseType:    caseView.CaseType,
		NewOffers:   e.NewMatches,
	}); err != nil {
		return err
	}

	m.enqueueWhatsApp(ctx, contact.Phone, fmt.Sprintf(waMatchOffersFmt, contact.Name, e.NewMatches, caseView.CaseType))
	return nil
}

func (m *Module) handleMatchSelected(ctx context.Context, e events.MatchSelected) error {
	caseView, err := m.directory.GetCase(ctx, e.CaseID)
	if err != nil {
		return err
	}
	provider, err := m.directory.GetProvider(ctx, e.ProviderID)
	if err != nil {
		return err
	}
	contact, err := m.directory.GetContact(ctx, provider.UserID)
	if err != nil {
		return err
	}

	if err := m.enqueueEmail(ctx, templateMatchSelected, matchSelectedPayload{
		ToEmail:      contact.Email,
		ProviderName: provider.Name,
		CaseType:     caseView.CaseType,
	}); err != nil {
		return err
	}

	m.enqueueWhatsApp(ctx, contact.Phone, fmt.Sprintf(waMatchSelectedFmt, provider.Name, caseView.CaseType))
	return nil
}

func (m *Module) handleMatchAccepted(ctx context.Context, e events.MatchAccepted) error {
	caseView, err := m.directory.GetCase(ctx, e.CaseID)
	if err != nil {
		return err
	}
	provider, err := m.directory.GetProvider(ctx, e.ProviderID)
	if err != nil {
		return err
	}
	citizen, err := m.directory.GetContact(ctx, caseView.CitizenID)
	if err != nil {
		return err
	}

	providerPhone := ""
	if providerContact, err := m.directory.GetContact(ctx, provider.UserID); err == nil {
		if phone.IsValid(providerContact.Phone) {
			providerPhone = phone.NormalizeE164(providerContact.Phone)
		}
	}

	if err := m.enqueueEmail(ctx, templateMatchAccepted, matchAcceptedPayload{
		ToEmail:       citizen.Email,
		CitizenName:   citizen.Name,
		ProviderName:  provider.Name,
		ProviderPhone: providerPhone,
	}); err != nil {
		return err
	}

	m.enqueueWhatsApp(ctx, citizen.Phone, fmt.Sprintf(waMatchAcceptedFmt, citizen.Name, provider.Name))
	return nil
}

// handleMatchRejected notifies the citizen only when the provider declined;
// a citizen's own rejection needs no message.
func (m *Module) handleMatchRejected(ctx context.Context, e events.MatchRejected) error {
	caseView, err := m.directory.GetCase(ctx, e.CaseID)
	if err != nil {
		return err
	}
	if e.ActorID == caseView.CitizenID {
		return nil
	}

	provider, err := m.directory.GetProvider(ctx, e.ProviderID)
	if err != nil {
		return err
	}
	citizen, err := m.directory.GetContact(ctx, caseView.CitizenID)
	if err != nil {
		return err
	}

	return m.enqueueEmail(ctx, templateMatchDeclined, matchDeclinedPayload{
		ToEmail:      citizen.Email,
		CitizenName:  citizen.Name,
		ProviderName: provider.Name,
		Reason:       e.Reason,
	})
}

func (m *Module) handleMatchExpired(ctx context.Context, e events.MatchExpired) error {
	caseView, err := m.directory.GetCase(ctx, e.CaseID)
	if err != nil {
		return err
	}
	provider, err := m.directory.GetProvider(ctx, e.ProviderID)
	if err != nil {
		return err
	}
	contact, err := m.directory.GetContact(ctx, provider.UserID)
	if err != nil {
		return err
	}

	return m.enqueueEmail(ctx, templateMatchExpired, matchExpiredPayload{
		ToEmail:      contact.Email,
		ProviderName: provider.Name,
		CaseType:     caseView.CaseType,
	})
}

// =============================================================================
// Enqueue helpers
// =============================================================================

func (m *Module) enqueueEmail(ctx context.Context, template string, payload any) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; enqueue skipped", "template", template)
		return nil
	}

	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Channel:  channelEmail,
		Template: template,
		Payload:  payload,
		RunAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	m.log.Info("outbox message enqueued", "outboxId", id.String(), "channel", channelEmail, "template", template)
	return nil
}

// enqueueWhatsApp adds a whatsapp outbox row when the gateway is configured
// and the number is valid. Failures never propagate: the email channel has
// already been enqueued for the same event.
func (m *Module) enqueueWhatsApp(ctx context.Context, phoneNumber, message string) {
	if m.outbox == nil || m.whatsapp == nil {
		return
	}
	if !phone.IsValid(phoneNumber) {
		return
	}

	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Channel:  channelWhatsApp,
		Template: templateWhatsAppSend,
		Payload: whatsAppSendPayload{
			Phone:   phone.NormalizeE164(phoneNumber),
			Message: message,
		},
		RunAt: time.Now().UTC(),
	})
	if err != nil {
		m.log.Error("failed to enqueue whatsapp message", "error", err)
		return
	}
	m.log.Info("outbox message enqueued", "outboxId", id.String(), "channel", channelWhatsApp, "template", templateWhatsAppSend)
}

// =============================================================================
// Outbox dispatch
// =============================================================================

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	if m.outbox == nil {
		return nil
	}

	rec, err := m.outbox.GetByID(ctx, e.OutboxID)
	if err != nil {
		return err
	}
	switch rec.Status {
	case notificationoutbox.StatusSucceeded, notificationoutbox.StatusFailed, notificationoutbox.StatusProcessing:
		return nil
	}

	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return err
	}

	if err := m.deliver(ctx, rec); err != nil {
		return m.recordFailure(ctx, rec, err)
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	m.log.Info("outbox message delivered", "outboxId", rec.ID.String(), "channel", rec.Channel, "template", rec.Template)
	return nil
}

func (m *Module) deliver(ctx context.Context, rec notificationoutbox.Record) error {
	switch rec.Channel {
	case channelWhatsApp:
		var p whatsAppSendPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		if m.whatsapp == nil {
			return fmt.Errorf("whatsapp gateway not configured")
		}
		return m.whatsapp.SendMessage(ctx, p.Phone, p.Message)
	case channelEmail:
		return m.deliverEmail(ctx, rec)
	default:
		return fmt.Errorf("unknown channel %q", rec.Channel)
	}
}

func (m *Module) deliverEmail(ctx context.Context, rec notificationoutbox.Record) error {
	switch rec.Template {
	case templateMatchOffers:
		var p matchOffersPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return m.sender.SendMatchOffersEmail(ctx, p.ToEmail, p.CitizenName, p.CaseType, p.NewOffers)
	case templateMatchSelected:
		var p matchSelectedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return m.sender.SendMatchSelectedEmail(ctx, p.ToEmail, p.ProviderName, p.CaseType)
	case templateMatchAccepted:
		var p matchAcceptedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return m.sender.SendMatchAcceptedEmail(ctx, p.ToEmail, p.CitizenName, p.ProviderName, p.ProviderPhone)
	case templateMatchDeclined:
		var p matchDeclinedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return m.sender.SendMatchDeclinedEmail(ctx, p.ToEmail, p.CitizenName, p.ProviderName, p.Reason)
	case templateMatchExpired:
		var p matchExpiredPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return fmt.Errorf("%w: %v", errInvalidPayload, err)
		}
		return m.sender.SendMatchExpiredEmail(ctx, p.ToEmail, p.ProviderName, p.CaseType)
	default:
		return fmt.Errorf("unknown template %q", rec.Template)
	}
}

// recordFailure reschedules transient failures with exponential backoff and
// parks the record as failed once attempts run out or the payload is broken.
func (m *Module) recordFailure(ctx context.Context, rec notificationoutbox.Record, deliveryErr error) error {
	attempts := rec.Attempts + 1

	if permanentFailure(attempts, deliveryErr) {
		m.log.Error("outbox delivery failed permanently",
			"outboxId", rec.ID.String(), "channel", rec.Channel, "template", rec.Template,
			"attempts", attempts, "error", deliveryErr,
		)
		return m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
	}

	delay := retryDelay(attempts)
	m.log.Warn("outbox delivery failed; rescheduling",
		"outboxId", rec.ID.String(), "channel", rec.Channel, "template", rec.Template,
		"attempts", attempts, "retryIn", delay.String(), "error", deliveryErr,
	)
	return m.outbox.Reschedule(ctx, rec.ID, time.Now().UTC().Add(delay), deliveryErr.Error())
}

func permanentFailure(attempts int, err error) bool {
	return attempts >= maxOutboxRetryAttempts || errors.Is(err, errInvalidPayload)
}

func retryDelay(attempts int) time.Duration {
	delay := outboxRetryBaseDelay << (attempts - 1)
	if delay > outboxRetryMaxDelay {
		delay = outboxRetryMaxDelay
	}
	return delay
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }
