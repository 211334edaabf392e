package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/tripsignal/tripsignal/internal/config"
	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/models"
	"github.com/tripsignal/tripsignal/internal/notify"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	metrics.Register()

	pool, err := repository.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db:", err)
	}
	defer pool.Close()

	outboxRepo := repository.NewOutboxRepository(pool)
	metrics.StartDBCollectors(ctx, pool, 15*time.Second, log.Default())

	emailWorker := service.NewOutboxWorker(
		outboxRepo,
		notify.NewEmailDeliverer(cfg.ResendAPIKey, cfg.EmailFrom, cfg.EnableEmail, log.Default()),
		service.WorkerConfig{
			Channel:       models.ChannelEmail,
			PollInterval:  cfg.OutboxPollInterval,
			BatchSize:     cfg.OutboxBatchSize,
			MaxAttempts:   cfg.OutboxMaxAttempts,
			StaleAfter:    cfg.OutboxStaleAfter,
			AdminEmail:    cfg.AdminEmail,
			RetentionDays: cfg.RetentionDays,
		},
		log.Default(),
	)

	logWorker := service.NewOutboxWorker(
		outboxRepo,
		notify.NewLogDeliverer(log.Default()),
		service.WorkerConfig{
			Channel:       models.ChannelLog,
			PollInterval:  cfg.OutboxPollInterval,
			BatchSize:     cfg.OutboxBatchSize,
			MaxAttempts:   cfg.OutboxMaxAttempts,
			StaleAfter:    cfg.OutboxStaleAfter,
			AdminEmail:    cfg.AdminEmail,
			RetentionDays: cfg.RetentionDays,
		},
		log.Default(),
	)

	emailWorker.Start(ctx)
	logWorker.Start(ctx)

	log.Println("notifier: workers started")
	<-ctx.Done()
	log.Println("notifier: shutting down")

	// give in-flight deliveries a moment to settle
	time.Sleep(time.Second)
}
