package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"legalaid_backend/internal/notification/outbox"
	"legalaid_backend/internal/whatsapp"
)

// A gateway client built without a configured URL is a typed nil. If it gets
// wired as the sender anyway, delivery must fail instead of reporting a send
// that never happened.
func TestDeliver_UnconfiguredWhatsAppClientFails(t *testing.T) {
	m := newTestModule(&fakeDirectory{})
	m.SetWhatsAppSender((*whatsapp.Client)(nil))

	rec := outbox.Record{
		Channel:  channelWhatsApp,
		Template: templateWhatsAppSend,
		Payload:  json.RawMessage(`{"phone":"+923001234567","message":"hello"}`),
	}

	if err := m.deliver(context.Background(), rec); err == nil {
		t.Fatal("expected delivery to fail with an unconfigured gateway client")
	}
}

func TestDeliver_NoSenderWiredFails(t *testing.T) {
	m := newTestModule(&fakeDirectory{})

	rec := outbox.Record{
		Channel:  channelWhatsApp,
		Template: templateWhatsAppSend,
		Payload:  json.RawMessage(`{"phone":"+923001234567","message":"hello"}`),
	}

	if err := m.deliver(context.Background(), rec); err == nil {
		t.Fatal("expected delivery to fail when no sender is wired")
	}
}

func TestPermanentFailure(t *testing.T) {
	transient := errors.New("smtp connection refused")
	broken := fmt.Errorf("%w: unexpected end of JSON input", errInvalidPayload)

	if permanentFailure(1, transient) {
		t.Fatal("first transient failure should be retried")
	}
	if !permanentFailure(maxOutboxRetryAttempts, transient) {
		t.Fatal("exhausted attempts should park the record")
	}
	if !permanentFailure(1, broken) {
		t.Fatal("a broken payload should never be retried")
	}
	if !permanentFailure(1, fmt.Errorf("deliver: %w", broken)) {
		t.Fatal("wrapped payload errors should still be permanent")
	}
}

func TestRetryDelay(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{10, outboxRetryMaxDelay},
	}
	for _, tc := range cases {
		if got := retryDelay(tc.attempts); got != tc.want {
			t.Fatalf("attempt %d: got %s, want %s", tc.attempts, got, tc.want)
		}
	}
}
