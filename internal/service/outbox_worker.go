package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/notify"
)

// OutboxStore is the slice of the outbox repository the worker drives.
// *repository.OutboxRepository satisfies it.
type OutboxStore interface {
	ClaimBatch(ctx context.Context, channel string, limit int, staleAfter time.Duration) ([]*models.OutboxMessage, error)
	MarkSent(ctx context.Context, id string) error
	MarkRetry(ctx context.Context, id string, errMsg string, nextAttemptAt time.Time) error
	MarkDead(ctx context.Context, id string, errMsg string) error
	Enqueue(ctx context.Context, msg *models.OutboxMessage) error
	CleanupOldSent(ctx context.Context, retentionDays int) (int, error)
}

// DefaultBackoff is the escalating retry schedule. The last value repeats
// for attempts beyond the schedule's length.
var DefaultBackoff = []time.Duration{
	30 * time.Second,
	2 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
}

const maxErrorLen = 2000

// WorkerConfig carries every delivery tunable explicitly, so tests can
// inject deterministic schedules.
type WorkerConfig struct {
	Channel       string
	PollInterval  time.Duration
	BatchSize     int
	MaxAttempts   int
	Backoff       []time.Duration
	StaleAfter    time.Duration
	AdminEmail    string
	RetentionDays int
}

// OutboxWorker polls one channel of the outbox: claim a batch, attempt
// delivery, drive each row through pending -> sending -> sent/pending/dead.
// Several workers may run per channel; the claim query partitions them.
type OutboxWorker struct {
	repo      OutboxStore
	deliverer notify.Deliverer
	cfg       WorkerConfig
	logger    *log.Logger

	cleanupEvery time.Duration
}

func NewOutboxWorker(repo OutboxStore, deliverer notify.Deliverer, cfg WorkerConfig, logger *log.Logger) *OutboxWorker {
	if cfg.Channel == "" {
		cfg.Channel = models.ChannelLog
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 25
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = DefaultBackoff
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 5 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}

	return &OutboxWorker{
		repo:         repo,
		deliverer:    deliverer,
		cfg:          cfg,
		logger:       logger,
		cleanupEvery: 1 * time.Hour,
	}
}

// Start runs the poll loop in a background goroutine until ctx is done.
func (w *OutboxWorker) Start(ctx context.Context) {
	go func() {
		w.logger.Printf("[outbox:%s] worker started", w.cfg.Channel)
		defer w.logger.Printf("[outbox:%s] worker stopped", w.cfg.Channel)

		ticker := time.NewTicker(w.cfg.PollInterval)
		defer ticker.Stop()

		cleanupTicker := time.NewTicker(w.cleanupEvery)
		defer cleanupTicker.Stop()

		w.flushOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.flushOnce(ctx)
			case <-cleanupTicker.C:
				w.cleanupOnce(ctx)
			}
		}
	}()
}

// flushOnce claims one batch and processes it oldest-first. Row failures
// are contained: the loop always moves on to the next row.
func (w *OutboxWorker) flushOnce(ctx context.Context) {
	msgs, err := w.repo.ClaimBatch(ctx, w.cfg.Channel, w.cfg.BatchSize, w.cfg.StaleAfter)
	if err != nil {
		w.logger.Printf("[outbox:%s] claim batch failed: %v", w.cfg.Channel, err)
		return
	}
	if len(msgs) == 0 {
		return
	}

	for _, m := range msgs {
		w.processOne(ctx, m)
	}
}

func (w *OutboxWorker) processOne(ctx context.Context, m *models.OutboxMessage) {
	metrics.ObserveOutboxLagSeconds(time.Since(m.CreatedAt).Seconds())
	start := time.Now()

	err := w.deliverer.Deliver(ctx, m)
	metrics.ObserveOutboxProcessing(time.Since(start))

	if err == nil {
		if err := w.repo.MarkSent(ctx, m.ID); err != nil {
			w.logger.Printf("[outbox:%s] mark sent %s: %v", w.cfg.Channel, m.ID, err)
			return
		}
		metrics.IncOutboxSent()
		w.logger.Printf("[outbox:%s] delivered id=%s to=%s", w.cfg.Channel, m.ID, m.ToEmail)
		return
	}

	w.retryOrBury(ctx, m, err)
}

// retryOrBury applies the retry state machine after a failed delivery.
// Attempts were already incremented at claim time, so the comparison is
// against the row's current counter.
func (w *OutboxWorker) retryOrBury(ctx context.Context, m *models.OutboxMessage, cause error) {
	errText := truncateError(cause)

	if m.Attempts >= w.cfg.MaxAttempts {
		if err := w.repo.MarkDead(ctx, m.ID, errText); err != nil {
			w.logger.Printf("[outbox:%s] mark dead %s: %v", w.cfg.Channel, m.ID, err)
			return
		}
		metrics.IncOutboxDead()
		w.logger.Printf("[outbox:%s] id=%s dead after %d attempts: %s", w.cfg.Channel, m.ID, m.Attempts, errText)
		w.escalate(ctx, m, errText)
		return
	}

	next := time.Now().Add(backoffFor(m.Attempts, w.cfg.Backoff))
	if err := w.repo.MarkRetry(ctx, m.ID, errText, next); err != nil {
		w.logger.Printf("[outbox:%s] mark retry %s: %v", w.cfg.Channel, m.ID, err)
		return
	}
	metrics.IncOutboxRetry()
	w.logger.Printf("[outbox:%s] id=%s attempt %d failed, retrying at %s: %s",
		w.cfg.Channel, m.ID, m.Attempts, next.Format(time.RFC3339), errText)
}

// escalate makes a permanent failure observable as a new outbox entry on
// the log channel, addressed to the admin recipient.
func (w *OutboxWorker) escalate(ctx context.Context, dead *models.OutboxMessage, lastError string) {
	alert := BuildEscalation(dead, lastError, w.cfg.AdminEmail)
	if alert == nil {
		return
	}

	if err := w.repo.Enqueue(ctx, alert); err != nil {
		w.logger.Printf("[outbox:%s] enqueue escalation for %s: %v", w.cfg.Channel, dead.ID, err)
		return
	}
	metrics.IncEscalation()
	w.logger.Printf("[outbox:%s] escalated dead message %s to admin", w.cfg.Channel, dead.ID)
}

func (w *OutboxWorker) cleanupOnce(ctx context.Context) {
	if w.cfg.RetentionDays <= 0 {
		return
	}
	n, err := w.repo.CleanupOldSent(ctx, w.cfg.RetentionDays)
	if err != nil {
		w.logger.Printf("[outbox:%s] cleanup failed: %v", w.cfg.Channel, err)
		return
	}
	if n > 0 {
		w.logger.Printf("[outbox:%s] cleanup: deleted %d sent messages", w.cfg.Channel, n)
	}
}

// BuildEscalation renders the admin alert for a dead message. Returns nil
// when the dead message is itself addressed to the admin recipient, which
// would otherwise loop forever. The alert deliberately carries no signal
// or match reference: once delivered it would otherwise count against the
// originating signal's notification cooldown and silence the user.
func BuildEscalation(dead *models.OutboxMessage, lastError, adminEmail string) *models.OutboxMessage {
	if dead == nil {
		return nil
	}
	if adminEmail == "" {
		adminEmail = "admin"
	}
	if dead.ToEmail == adminEmail {
		return nil
	}

	subject := fmt.Sprintf("ADMIN ALERT: notification failed (%s)", dead.ID)
	body := fmt.Sprintf(
		"id: %s\nchannel: %s\nto_email: %s\nsubject: %s\nattempts: %d\nlast_error: %s\n",
		dead.ID, dead.Channel, dead.ToEmail, dead.Subject, dead.Attempts, lastError,
	)

	return &models.OutboxMessage{
		Channel:  models.ChannelLog,
		ToEmail:  adminEmail,
		Subject:  subject,
		BodyText: body,
	}
}

// backoffFor returns the delay before the next attempt. attempts is the
// count already made; the schedule caps at its last entry.
func backoffFor(attempts int, schedule []time.Duration) time.Duration {
	if len(schedule) == 0 {
		return time.Minute
	}
	idx := attempts - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}

func truncateError(err error) string {
	if err == nil {
		return "unknown error"
	}
	s := err.Error()
	if len(s) > maxErrorLen {
		s = s[:maxErrorLen]
	}
	return s
}
