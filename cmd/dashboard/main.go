package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"psl-dashboard/internal/cache"
	"psl-dashboard/internal/dashboard"
	"psl-dashboard/internal/football"
	"psl-dashboard/internal/handlers"
	"psl-dashboard/internal/httpserver"
	"psl-dashboard/internal/metrics"
	"psl-dashboard/internal/quota"
	"psl-dashboard/internal/seed"
	"psl-dashboard/internal/store"
	"psl-dashboard/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("dashboard exited with error: %v", err)
	}
}

func run() error {
	// ----- Logger -----
	logger := logging.DefaultLogger()
	defer logger.Sync()

	// ----- Config -----
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}

	logger.Info("loaded config",
		zap.String("port", cfg.Port),
		zap.String("mongo_db", cfg.MongoDB),
		zap.Int("default_season", cfg.DefaultSeason),
		zap.Duration("cache_sweep_interval", cfg.CacheSweepInterval),
		zap.Int("cache_max_entries", cfg.CacheMaxEntries),
		zap.Bool("cache_singleflight", cfg.CacheSingleFlight),
		zap.Bool("seeding_enabled", cfg.RapidAPIKey != ""),
		zap.Bool("quota_tracking", cfg.RedisAddr != ""),
	)

	// ----- Response cache -----
	ttls, err := cache.LoadTTLFile(cfg.CacheTTLFile)
	if err != nil {
		return err
	}
	mem := cache.New(cache.Config{
		TTL:           ttls,
		SweepInterval: cfg.CacheSweepInterval,
		MaxEntries:    cfg.CacheMaxEntries,
	}, logger)
	defer mem.Close()
	responseCache := cache.NewInstrumented(mem)

	// ----- Metrics -----
	metrics.Register(mem.Len)

	// ----- Store -----
	ctx := context.Background()
	var (
		repo  dashboard.Repository
		ready handlers.Pinger
		db    *store.Mongo
	)
	db, err = store.Connect(ctx, store.Config{
		URI:        cfg.MongoURI,
		Database:   cfg.MongoDB,
		Collection: cfg.MongoCollection,
	}, logger)
	switch {
	case errors.Is(err, store.ErrNotConfigured):
		logger.Warn("MONGO_URI not set, resource routes will answer 503")
	case err != nil:
		return err
	default:
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := db.Close(closeCtx); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}()
		if err := db.EnsureIndexes(ctx); err != nil {
			logger.Warn("ensure indexes", zap.Error(err))
		}
		repo, ready = db, db
	}

	// ----- Redis quota tracker (only if configured) -----
	var (
		tracker  *quota.Tracker
		reporter handlers.QuotaReporter
		gate     football.QuotaGate
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		})
		defer redisClient.Close()

		// Fail fast if Redis is misconfigured
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Error("redis connection failed", zap.Error(err))
			return err
		}
		logger.Info("redis connection established",
			zap.String("addr", cfg.RedisAddr),
		)

		tracker = quota.NewTracker(redisClient, quota.DefaultReserve, logger)
		reporter, gate = tracker, tracker
	}

	// ----- Upstream client + seeder (only if an api key is set) -----
	var seeder handlers.Seeder
	if cfg.RapidAPIKey != "" && db != nil {
		client, err := football.NewClient(football.Config{
			APIKey:  cfg.RapidAPIKey,
			BaseURL: cfg.FootballBaseURL,
			Host:    cfg.RapidAPIHost,
			Quota:   gate,
		}, logger)
		if err != nil {
			return err
		}
		defer client.Close()

		seeder = seed.NewSeeder(client, db, responseCache, seed.Config{
			League:  cfg.LeagueID,
			Seasons: cfg.SeedSeasons,
		}, logger)
	}

	// ----- Handlers -----
	fetcher := cache.NewFetcher(responseCache, cfg.CacheSingleFlight)

	// ----- Router + middleware -----
	r := chi.NewRouter()
	httpserver.SetupRouter(r, logger, httpserver.Handlers{
		Resources: handlers.NewResourceHandler(fetcher, dashboard.NewService(repo), cfg.DefaultSeason),
		Cache:     handlers.NewCacheAdmin(responseCache),
		Seed:      handlers.NewSeedHandler(seeder, reporter),
		Ready:     handlers.Readyz(ready),
	})

	// ----- HTTP server -----
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      httpserver.SeedTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("starting dashboard",
		zap.String("addr", srv.Addr),
	)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ----- Graceful shutdown -----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		logger.Error("server error", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
		return err
	}

	logger.Info("server shutdown complete")
	return nil
}
