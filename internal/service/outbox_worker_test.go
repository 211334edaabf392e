package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/tripsignal/tripsignal/internal/models"
)

// ── fake outbox store: in-memory single-message state machine ────────────

// fakeOutboxStore drives one message through the same transitions the
// Postgres repository performs, including the claim-time attempt bump and
// the rule that mark calls only act on a row still in "sending".
type fakeOutboxStore struct {
	msg      *models.OutboxMessage
	sent     int
	retries  int
	dead     int
	enqueued []*models.OutboxMessage
	lastErr  string
}

func (f *fakeOutboxStore) ClaimBatch(ctx context.Context, channel string, limit int, staleAfter time.Duration) ([]*models.OutboxMessage, error) {
	if f.msg == nil || f.msg.Status != "pending" {
		return nil, nil
	}
	f.msg.Attempts++
	f.msg.Status = "sending"
	return []*models.OutboxMessage{f.msg}, nil
}

func (f *fakeOutboxStore) MarkSent(ctx context.Context, id string) error {
	if f.msg == nil || f.msg.ID != id || f.msg.Status != "sending" {
		return nil
	}
	f.msg.Status = "sent"
	f.sent++
	return nil
}

func (f *fakeOutboxStore) MarkRetry(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error {
	if f.msg == nil || f.msg.ID != id || f.msg.Status != "sending" {
		return nil
	}
	f.msg.Status = "pending"
	f.retries++
	f.lastErr = errMsg
	return nil
}

func (f *fakeOutboxStore) MarkDead(ctx context.Context, id string, errMsg string) error {
	if f.msg == nil || f.msg.ID != id || f.msg.Status != "sending" {
		return nil
	}
	f.msg.Status = "dead"
	f.dead++
	f.lastErr = errMsg
	return nil
}

func (f *fakeOutboxStore) Enqueue(ctx context.Context, msg *models.OutboxMessage) error {
	f.enqueued = append(f.enqueued, msg)
	return nil
}

func (f *fakeOutboxStore) CleanupOldSent(ctx context.Context, retentionDays int) (int, error) {
	return 0, nil
}

type stubDeliverer struct{ err error }

func (d stubDeliverer) Deliver(ctx context.Context, msg *models.OutboxMessage) error {
	return d.err
}

func pendingMessage() *models.OutboxMessage {
	sigID := "sig-1"
	return &models.OutboxMessage{
		ID:       "11111111-1111-1111-1111-111111111111",
		Status:   "pending",
		SignalID: &sigID,
		Channel:  models.ChannelEmail,
		ToEmail:  "user@example.com",
		Subject:  "New deal found for your Winter sun signal — from $1250",
	}
}

func testWorker(store *fakeOutboxStore, d stubDeliverer) *OutboxWorker {
	cfg := WorkerConfig{
		Channel:     models.ChannelEmail,
		MaxAttempts: 8,
		AdminEmail:  "ops@example.com",
	}
	return NewOutboxWorker(store, d, cfg, log.New(io.Discard, "", 0))
}

// ── worker: pending -> sending -> sent/pending/dead ──────────────────────

func TestOutboxWorker_DeliverySuccess(t *testing.T) {
	store := &fakeOutboxStore{msg: pendingMessage()}
	w := testWorker(store, stubDeliverer{})

	w.flushOnce(context.Background())

	if store.sent != 1 || store.retries != 0 || store.dead != 0 {
		t.Errorf("sent=%d retries=%d dead=%d, want one clean send", store.sent, store.retries, store.dead)
	}
	if store.msg.Status != "sent" {
		t.Errorf("message status = %s, want sent", store.msg.Status)
	}
}

func TestOutboxWorker_FailuresExhaustAttemptsThenDead(t *testing.T) {
	store := &fakeOutboxStore{msg: pendingMessage()}
	w := testWorker(store, stubDeliverer{err: errors.New("provider returned 500")})

	// Backoff timing is the repository's concern; here every poll finds
	// the message eligible again, so eight polls walk all eight attempts.
	for i := 0; i < 10; i++ {
		w.flushOnce(context.Background())
	}

	if store.retries != 7 {
		t.Errorf("retries = %d, want 7 before the ceiling", store.retries)
	}
	if store.dead != 1 {
		t.Fatalf("dead = %d, want exactly 1", store.dead)
	}
	if store.msg.Attempts != 8 {
		t.Errorf("attempts = %d, want 8 at burial", store.msg.Attempts)
	}
	if !strings.Contains(store.lastErr, "provider returned 500") {
		t.Errorf("last_error = %q, want the delivery failure", store.lastErr)
	}
	if len(store.enqueued) != 1 {
		t.Fatalf("enqueued %d escalations, want exactly 1", len(store.enqueued))
	}
	alert := store.enqueued[0]
	if alert.ToEmail != "ops@example.com" || alert.Channel != models.ChannelLog {
		t.Errorf("alert to=%s channel=%s, want admin on the log channel", alert.ToEmail, alert.Channel)
	}
	if alert.SignalID != nil || alert.MatchID != nil {
		t.Error("alert must not reference the signal or match, or its delivery would start the user's cooldown")
	}
}

func TestOutboxWorker_DeadAdminMessageDoesNotEscalate(t *testing.T) {
	store := &fakeOutboxStore{msg: pendingMessage()}
	store.msg.ToEmail = "ops@example.com"
	w := testWorker(store, stubDeliverer{err: errors.New("boom")})

	for i := 0; i < 10; i++ {
		w.flushOnce(context.Background())
	}

	if store.dead != 1 {
		t.Fatalf("dead = %d, want 1", store.dead)
	}
	if len(store.enqueued) != 0 {
		t.Errorf("enqueued %d escalations about the admin's own mail, want none", len(store.enqueued))
	}
}

func TestOutboxWorker_ToleratesLostClaim(t *testing.T) {
	store := &fakeOutboxStore{msg: pendingMessage()}
	w := testWorker(store, stubDeliverer{})

	w.flushOnce(context.Background())

	// Another worker reclaimed and buried the row; the belated mark is a
	// no-op and must not resurrect it.
	store.msg.Status = "dead"
	if err := store.MarkRetry(context.Background(), store.msg.ID, "late", time.Now()); err != nil {
		t.Fatalf("belated mark retry: %v", err)
	}
	if store.msg.Status != "dead" {
		t.Errorf("message status = %s, terminal state must stick", store.msg.Status)
	}
}

// ── backoffFor: schedule indexed by attempt, clamped at the tail ─────────

func TestBackoffFor_Schedule(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{1, 30 * time.Second},
		{2, 2 * time.Minute},
		{3, 10 * time.Minute},
		{4, 30 * time.Minute},
		{5, 2 * time.Hour},
		{6, 2 * time.Hour}, // past the schedule, stays at the last step
		{9, 2 * time.Hour},
	}
	for _, c := range cases {
		if got := backoffFor(c.attempts, DefaultBackoff); got != c.want {
			t.Errorf("backoffFor(%d) = %s, want %s", c.attempts, got, c.want)
		}
	}
}

func TestBackoffFor_ZeroAttempts(t *testing.T) {
	if got := backoffFor(0, DefaultBackoff); got != 30*time.Second {
		t.Errorf("backoffFor(0) = %s, want first step", got)
	}
}

func TestBackoffFor_EmptySchedule(t *testing.T) {
	if got := backoffFor(3, nil); got != time.Minute {
		t.Errorf("backoffFor with empty schedule = %s, want 1m fallback", got)
	}
}

// ── truncateError ──────────────────────────────────────────────────────────

func TestTruncateError_LongMessages(t *testing.T) {
	long := errString(strings.Repeat("x", maxErrorLen+500))
	got := truncateError(long)
	if len(got) > maxErrorLen {
		t.Errorf("truncated error is %d chars, cap is %d", len(got), maxErrorLen)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
