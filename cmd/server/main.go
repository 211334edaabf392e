package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tripsignal/tripsignal/internal/cache"
	"github.com/tripsignal/tripsignal/internal/config"
	"github.com/tripsignal/tripsignal/internal/handlers"
	"github.com/tripsignal/tripsignal/internal/metrics"
	"github.com/tripsignal/tripsignal/internal/repository"
	"github.com/tripsignal/tripsignal/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---------- config ----------
	cfg := config.Load()

	// ---------- metrics ----------
	metrics.Register()

	// ---------- db ----------
	pool, err := repository.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatal("db:", err)
	}
	defer pool.Close()

	// ---------- redis ----------
	rdb := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rdb.Close()

	// ---------- repositories ----------
	dealRepo := repository.NewDealRepository(pool)
	signalRepo := repository.NewSignalRepository(pool)
	matchRepo := repository.NewMatchRepository(pool)
	runRepo := repository.NewRunRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)

	// ---------- services ----------
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

	// ---------- background collectors ----------
	metrics.StartDBCollectors(ctx, pool, 15*time.Second, log.Default())
	cache.StartRedisSizeCollector(ctx, rdb.RawClient(), 30*time.Second, log.Default())

	// ---------- handlers ----------
	dealHandler := handlers.NewDealHandler(dealRepo, rdb, cfg.CacheTTL)
	adminHandler := handlers.NewAdminHandler(cfg.AdminToken, outboxRepo, matchSvc, cfg.AdminEmail)

	// ---------- router ----------
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)

	r.Handle("/metrics", metrics.Handler())
	handlers.RegisterRoutes(r, dealHandler, adminHandler)

	// ---------- start server ----------
	addr := ":" + cfg.HTTPPort
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Println("server starting on", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("server: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Println("server shutdown:", err)
	}
}
