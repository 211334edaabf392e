package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/tripsignal/tripsignal/internal/cache"
	"github.com/tripsignal/tripsignal/internal/config"
	"github.com/tripsignal/tripsignal/internal/kafka"
	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/scraper"
	"github.com/tripsignal/tripsignal/internal/service"
)

func main() {
	once := flag.Bool("once", false, "run a single scrape pass and exit")
	matchOnly := flag.Bool("match-only", false, "match stored deals against signals without scraping, then exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	metrics.Register()

	pool, err := repository.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db:", err)
	}
	defer pool.Close()

	rdb := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	dealRepo := repository.NewDealRepository(pool)
	signalRepo := repository.NewSignalRepository(pool)
	matchRepo := repository.NewMatchRepository(pool)
	runRepo := repository.NewRunRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	matchSvc := service.NewMatchService(
		pool,
		signalRepo,
		dealRepo,
		matchRepo,
		runRepo,
		outboxRepo,
		cfg.NotifyCooldown,
		log.Default(),
	)

	if *matchOnly {
		run, err := matchSvc.RunMatchingPass(ctx, models.RunTypeManual)
		if err != nil {
			log.Fatal("matching pass:", err)
		}
		log.Printf("matching pass done: run=%s matches=%d", run.ID, run.MatchesCreated)
		return
	}

	// deal events are best effort, the pass runs without Kafka
	var events service.DealEventSender
	producer, err := kafka.NewSyncProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		log.Println("kafka producer unavailable, deal events disabled:", err)
	} else {
		defer producer.Close()
		events = producer
	}

	fetcher := scraper.NewFetcher(cfg.ScrapeBaseURL, log.Default())

	scrapeSvc := service.NewScrapeService(
		pool,
		dealRepo,
		signalRepo,
		runRepo,
		matchSvc,
		fetcher,
		events,
		rdb,
		service.ScrapeConfig{
			Categories: scraper.Categories,
			Gateways:   scraper.GatewaySlugs,
			PageDelay:  cfg.ScrapeDelay,
		},
		log.Default(),
	)

	if *once {
		run, err := scrapeSvc.RunScrapePass(ctx, models.RunTypeManual)
		if err != nil {
			log.Fatal("scrape pass:", err)
		}
		log.Printf("scrape pass done: run=%s matches=%d", run.ID, run.MatchesCreated)
		return
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.ScrapeCron, func() {
		run, err := scrapeSvc.RunScrapePass(ctx, models.RunTypeScheduled)
		if err != nil {
			log.Println("scheduled scrape pass:", err)
			return
		}
		log.Printf("scheduled scrape pass done: run=%s matches=%d", run.ID, run.MatchesCreated)
	})
	if err != nil {
		log.Fatal("cron schedule:", err)
	}

	c.Start()
	log.Println("scraper scheduled:", cfg.ScrapeCron)

	<-ctx.Done()
	log.Println("scraper: shutting down")
	<-c.Stop().Done()
}
