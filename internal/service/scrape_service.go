package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripsignal/tripsignal/internal/cache"
	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/scraper"
)

// DealEventSender publishes deal observations downstream. Best effort: a
// publish failure never affects the pass.
type DealEventSender interface {
	SendDealEvent(deal *models.Deal, created bool) error
}

type ScrapeConfig struct {
	Categories []string
	Gateways   map[string]string // IATA code -> provider city slug
	PageDelay  time.Duration
}

// ScrapeService drives one full discovery pass: fetch, normalize, dedupe,
// price-track, match, notify, then retire deals the pass did not re-observe.
type ScrapeService struct {
	db       *pgxpool.Pool
	deals    *repository.DealRepository
	signals  *repository.SignalRepository
	runs     *repository.RunRepository
	matchSvc *MatchService
	fetcher  *scraper.Fetcher
	events   DealEventSender // nil when kafka is not configured
	cache    cache.Cache     // nil when redis is not configured
	cfg      ScrapeConfig
	logger   *log.Logger
}

func NewScrapeService(
	db *pgxpool.Pool,
	deals *repository.DealRepository,
	signals *repository.SignalRepository,
	runs *repository.RunRepository,
	matchSvc *MatchService,
	fetcher *scraper.Fetcher,
	events DealEventSender,
	c cache.Cache,
	cfg ScrapeConfig,
	logger *log.Logger,
) *ScrapeService {
	if len(cfg.Categories) == 0 {
		cfg.Categories = scraper.Categories
	}
	if len(cfg.Gateways) == 0 {
		cfg.Gateways = scraper.GatewaySlugs
	}
	if cfg.PageDelay <= 0 {
		cfg.PageDelay = 10 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &ScrapeService{
		db:       db,
		deals:    deals,
		signals:  signals,
		runs:     runs,
		matchSvc: matchSvc,
		fetcher:  fetcher,
		events:   events,
		cache:    c,
		cfg:      cfg,
		logger:   logger,
	}
}

// RunScrapePass sweeps every category/gateway page once, then deactivates
// deals whose dedupe keys the sweep did not re-observe. The whole pass is
// attributed to one Run record.
func (s *ScrapeService) RunScrapePass(ctx context.Context, runType string) (*models.Run, error) {
	start := time.Now()

	run, err := s.runs.Start(ctx, runType)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	totalMatches, err := s.scrapeAll(ctx, run.ID)
	if err != nil {
		if failErr := s.runs.Fail(ctx, run.ID, totalMatches, err.Error()); failErr != nil {
			s.logger.Printf("[scraper] mark run %s failed: %v", run.ID, failErr)
		}
		run.Status = models.RunStatusFailed
		run.MatchesCreated = totalMatches
		return run, err
	}

	if err := s.runs.Complete(ctx, run.ID, totalMatches); err != nil {
		return run, fmt.Errorf("complete run: %w", err)
	}
	run.Status = models.RunStatusSuccess
	run.MatchesCreated = totalMatches

	metrics.ObserveScrapePass(time.Since(start))
	s.logger.Printf("[scraper] pass complete in %s, matches: %d", time.Since(start).Round(time.Second), totalMatches)
	return run, nil
}

func (s *ScrapeService) scrapeAll(ctx context.Context, runID string) (int, error) {
	signals, err := s.signals.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active signals: %w", err)
	}

	seen := make(map[string]struct{})
	totalDeals := 0
	totalMatches := 0

	for _, category := range s.cfg.Categories {
		for _, citySlug := range s.cfg.Gateways {
			if err := ctx.Err(); err != nil {
				return totalMatches, err
			}

			candidates := s.fetcher.Fetch(ctx, category, citySlug)
			if len(candidates) > 0 {
				s.logger.Printf("[scraper] %s/from-%s: %d listings", category, citySlug, len(candidates))
			}

			for _, cand := range candidates {
				deal, _, err := s.observeCandidate(ctx, cand)
				if err != nil {
					s.logger.Printf("[scraper] observe %s: %v", cand.DedupeKey(), err)
					continue
				}

				seen[deal.DedupeKey] = struct{}{}
				totalDeals++
				totalMatches += s.matchSvc.MatchDeal(ctx, signals, deal, runID)
			}

			if !s.sleep(ctx, s.cfg.PageDelay) {
				return totalMatches, ctx.Err()
			}
		}
	}

	if len(seen) > 0 {
		keys := make([]string, 0, len(seen))
		for k := range seen {
			keys = append(keys, k)
		}
		n, err := s.deals.DeactivateMissing(ctx, keys)
		if err != nil {
			return totalMatches, fmt.Errorf("deactivate missing deals: %w", err)
		}
		if n > 0 {
			metrics.AddDealsDeactivated(n)
			s.logger.Printf("[scraper] marked %d deals inactive", n)
		}
	}

	s.invalidateDealCache(ctx)
	s.logger.Printf("[scraper] sweep done, deals observed: %d", totalDeals)
	return totalMatches, nil
}

// observeCandidate upserts the deal and appends the price observation in
// one transaction, so a committed deal always carries its history point.
func (s *ScrapeService) observeCandidate(ctx context.Context, cand *models.DealCandidate) (*models.Deal, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deal, created, err := s.deals.UpsertTx(ctx, tx, cand)
	if err != nil {
		return nil, false, err
	}

	if err := s.deals.AddPricePointTx(ctx, tx, deal.ID, cand.PriceCents); err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit tx: %w", err)
	}

	metrics.IncDealObserved(created)

	if s.events != nil {
		if err := s.events.SendDealEvent(deal, created); err != nil {
			s.logger.Printf("[scraper] publish deal event %s: %v", deal.DedupeKey, err)
		}
	}

	return deal, created, nil
}

func (s *ScrapeService) invalidateDealCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	setKey := cache.DealKeysSetKey()
	keys, err := s.cache.SMembers(ctx, setKey)
	if err != nil {
		s.logger.Printf("[scraper] cache invalidation read: %v", err)
		return
	}
	keys = append(keys, setKey)
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logger.Printf("[scraper] cache invalidation: %v", err)
	}
}

func (s *ScrapeService) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
