package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
)

// MatchService records (signal, deal) pairings and enqueues at most one
// notification per pair for its entire lifetime.
type MatchService struct {
	db       *pgxpool.Pool
	signals  *repository.SignalRepository
	deals    *repository.DealRepository
	matches  *repository.MatchRepository
	runs     *repository.RunRepository
	outbox   *repository.OutboxRepository
	cooldown time.Duration
	logger   *log.Logger
}

func NewMatchService(
	db *pgxpool.Pool,
	signals *repository.SignalRepository,
	deals *repository.DealRepository,
	matches *repository.MatchRepository,
	runs *repository.RunRepository,
	outbox *repository.OutboxRepository,
	cooldown time.Duration,
	logger *log.Logger,
) *MatchService {
	if cooldown <= 0 {
		cooldown = 24 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}

	return &MatchService{
		db:       db,
		signals:  signals,
		deals:    deals,
		matches:  matches,
		runs:     runs,
		outbox:   outbox,
		cooldown: cooldown,
		logger:   logger,
	}
}

// MatchDeal evaluates one deal against the given signals, recording matches
// and enqueueing notifications. One signal's bad config is logged and
// skipped, never aborting the batch. Returns how many new matches were
// created.
func (s *MatchService) MatchDeal(ctx context.Context, signals []*models.Signal, deal *models.Deal, runID string) int {
	created := 0
	for _, sig := range signals {
		ok, err := Matches(sig, deal)
		if err != nil {
			metrics.IncSignalEvalError()
			s.logger.Printf("[matcher] signal %s evaluation failed: %v", sig.ID, err)
			continue
		}
		if !ok {
			continue
		}

		isNew, err := s.RecordMatch(ctx, sig, deal, runID)
		if err != nil {
			s.logger.Printf("[matcher] record match signal=%s deal=%s: %v", sig.ID, deal.ID, err)
			continue
		}
		if isNew {
			created++
			metrics.IncMatchCreated()
			s.logger.Printf("[matcher] match: %s -> %s %s $%d",
				sig.Name, deal.Destination, deal.DepartDate.Format("2006-01-02"), deal.PriceCents/100)
		}
	}
	return created
}

// RecordMatch atomically upserts the (signal, deal) pair and, when the pair
// is new, enqueues a notification in the same transaction. A repeat
// observation returns isNew=false with the stored row's run reference
// refreshed, and enqueues nothing.
func (s *MatchService) RecordMatch(ctx context.Context, sig *models.Signal, deal *models.Deal, runID string) (bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	match, created, err := s.matches.RecordTx(ctx, tx, sig.ID, deal.ID, runID)
	if err != nil {
		return false, fmt.Errorf("record match tx: %w", err)
	}

	if created && s.shouldNotify(ctx, sig) {
		msg := buildMatchMessage(sig, deal, match)
		if err := s.outbox.EnqueueTx(ctx, tx, msg); err != nil {
			return false, fmt.Errorf("enqueue notification tx: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}

	return created, nil
}

// shouldNotify enforces the per-signal cooldown: even a brand-new match is
// silenced when a notification for the signal was delivered recently.
func (s *MatchService) shouldNotify(ctx context.Context, sig *models.Signal) bool {
	last, err := s.outbox.LastSentForSignal(ctx, sig.ID)
	if err != nil {
		// Cooldown is best effort; on a read failure prefer notifying.
		s.logger.Printf("[matcher] cooldown lookup for signal %s: %v", sig.ID, err)
		return true
	}
	if last != nil && time.Since(*last) < s.cooldown {
		s.logger.Printf("[matcher] signal %s in cooldown, suppressing notification", sig.ID)
		return false
	}
	return true
}

// RunMatchingPass matches every active deal against every active signal
// without scraping. This is the manual-trigger path.
func (s *MatchService) RunMatchingPass(ctx context.Context, runType string) (*models.Run, error) {
	run, err := s.runs.Start(ctx, runType)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	total, err := s.matchExisting(ctx, run.ID)
	if err != nil {
		if failErr := s.runs.Fail(ctx, run.ID, total, err.Error()); failErr != nil {
			s.logger.Printf("[matcher] mark run %s failed: %v", run.ID, failErr)
		}
		run.Status = models.RunStatusFailed
		run.MatchesCreated = total
		return run, err
	}

	if err := s.runs.Complete(ctx, run.ID, total); err != nil {
		return run, fmt.Errorf("complete run: %w", err)
	}
	run.Status = models.RunStatusSuccess
	run.MatchesCreated = total

	s.logger.Printf("[matcher] match-only pass complete, new matches: %d", total)
	return run, nil
}

func (s *MatchService) matchExisting(ctx context.Context, runID string) (int, error) {
	signals, err := s.signals.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active signals: %w", err)
	}
	if len(signals) == 0 {
		return 0, nil
	}

	deals, err := s.deals.List(ctx, true, 10000)
	if err != nil {
		return 0, fmt.Errorf("list active deals: %w", err)
	}

	total := 0
	for _, deal := range deals {
		total += s.MatchDeal(ctx, signals, deal, runID)
	}
	return total, nil
}

// buildMatchMessage renders the user-facing notification for a new match.
func buildMatchMessage(sig *models.Signal, deal *models.Deal, match *models.Match) *models.OutboxMessage {
	channel := sig.Config.Notifications.Channel
	if channel != models.ChannelEmail {
		channel = models.ChannelLog
	}

	to := sig.Config.Notifications.Email
	if to == "" {
		channel = models.ChannelLog
		to = "log"
	}

	subject := fmt.Sprintf("New deal found for your %s signal — from $%d", sig.Name, deal.PriceCents/100)

	var b strings.Builder
	fmt.Fprintf(&b, "A new deal matches your signal %q.\n\n", sig.Name)
	fmt.Fprintf(&b, "%s from %s\n", deal.Destination, deal.Origin)
	if deal.HotelName != "" {
		fmt.Fprintf(&b, "Hotel: %s\n", deal.HotelName)
	}
	fmt.Fprintf(&b, "Departs: %s (%d nights)\n", deal.DepartDate.Format("Jan 2, 2006"), deal.DurationNights)
	fmt.Fprintf(&b, "Price: $%d %s\n", deal.PriceCents/100, deal.Currency)
	if deal.StarRating != nil {
		fmt.Fprintf(&b, "Rating: %.1f stars\n", *deal.StarRating)
	}
	if deal.DeeplinkURL != nil {
		fmt.Fprintf(&b, "\nBook: %s\n", *deal.DeeplinkURL)
	}

	sigID := sig.ID
	matchID := match.ID

	return &models.OutboxMessage{
		SignalID: &sigID,
		MatchID:  &matchID,
		Channel:  channel,
		ToEmail:  to,
		Subject:  subject,
		BodyText: b.String(),
	}
}
