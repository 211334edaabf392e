package service_test

import (
	"strings"
	"testing"

	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/service"
)

func deadMessage() *models.OutboxMessage {
	sigID := "sig-1"
	matchID := "match-1"
	return &models.OutboxMessage{
		ID:       "11111111-1111-1111-1111-111111111111",
		Status:   "dead",
		Attempts: 8,
		SignalID: &sigID,
		MatchID:  &matchID,
		Channel:  models.ChannelEmail,
		ToEmail:  "user@example.com",
		Subject:  "New deal found for your Winter sun signal — from $1250",
	}
}

func TestBuildEscalation_AlertFields(t *testing.T) {
	dead := deadMessage()
	alert := service.BuildEscalation(dead, "provider returned 500", "ops@example.com")
	if alert == nil {
		t.Fatal("expected an alert for a dead user message")
	}
	if alert.Channel != models.ChannelLog {
		t.Errorf("alert channel = %s, want log", alert.Channel)
	}
	if alert.ToEmail != "ops@example.com" {
		t.Errorf("alert recipient = %s, want ops@example.com", alert.ToEmail)
	}
	if !strings.Contains(alert.Subject, dead.ID) {
		t.Errorf("alert subject %q should reference the dead message id", alert.Subject)
	}
	for _, want := range []string{dead.ID, dead.ToEmail, "provider returned 500", "attempts: 8"} {
		if !strings.Contains(alert.BodyText, want) {
			t.Errorf("alert body missing %q:\n%s", want, alert.BodyText)
		}
	}
}

// A delivered alert with the dead message's signal id would count as that
// signal's last notification and suppress the user for the cooldown window.
func TestBuildEscalation_NoSignalReference(t *testing.T) {
	alert := service.BuildEscalation(deadMessage(), "boom", "ops@example.com")
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.SignalID != nil {
		t.Errorf("alert signal_id = %q, want none", *alert.SignalID)
	}
	if alert.MatchID != nil {
		t.Errorf("alert match_id = %q, want none", *alert.MatchID)
	}
}

func TestBuildEscalation_NeverAlertsAboutAdminMail(t *testing.T) {
	dead := deadMessage()
	dead.ToEmail = "ops@example.com"
	if alert := service.BuildEscalation(dead, "boom", "ops@example.com"); alert != nil {
		t.Error("dead message already addressed to the admin must not spawn another alert")
	}
}

func TestBuildEscalation_DefaultAdminRecipient(t *testing.T) {
	alert := service.BuildEscalation(deadMessage(), "boom", "")
	if alert == nil {
		t.Fatal("expected an alert")
	}
	if alert.ToEmail != "admin" {
		t.Errorf("alert recipient = %s, want the admin fallback", alert.ToEmail)
	}
}

func TestBuildEscalation_NilDead(t *testing.T) {
	if service.BuildEscalation(nil, "boom", "ops@example.com") != nil {
		t.Error("nil dead message should yield no alert")
	}
}
