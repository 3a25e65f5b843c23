package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/dgarridoc/citabot/internal/appointments"
)

func TestNewSendGridSenderNilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "citas@example.com"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSenderDefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "key", FromEmail: "citas@example.com"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "CitaBot" {
		t.Errorf("default from name = %q", sender.fromName)
	}
}

func TestSendGridSenderNilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "ana@example.com", Subject: "x", Body: "y"})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestStubEmailSenderNeverFails(t *testing.T) {
	sender := NewStubEmailSender(nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "ana@example.com"}); err != nil {
		t.Errorf("stub sender returned error: %v", err)
	}
}

func TestConfirmationEmailContents(t *testing.T) {
	msg := ConfirmationEmail(&appointments.Appointment{
		RequesterName:  "Ana García",
		RequesterEmail: "ana@example.com",
		Service:        "dermatología",
		Date:           "2025-12-10",
		Time:           "17:00",
		Notes:          "primera visita",
	})

	if msg.To != "ana@example.com" || msg.ToName != "Ana García" {
		t.Errorf("wrong recipient: %+v", msg)
	}
	for _, want := range []string{"dermatología", "2025-12-10", "17:00", "primera visita", "Ana García"} {
		if !strings.Contains(msg.Subject+msg.Body, want) {
			t.Errorf("confirmation missing %q", want)
		}
	}
}

func TestConfirmationEmailOmitsEmptyNotes(t *testing.T) {
	msg := ConfirmationEmail(&appointments.Appointment{
		RequesterName:  "Ana",
		RequesterEmail: "ana@example.com",
		Service:        "médico",
		Date:           "2025-12-10",
		Time:           "09:00",
	})
	if strings.Contains(msg.Body, "Observaciones") {
		t.Error("notes section should be omitted when empty")
	}
}
