package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"nestegg/internal/amqp"
	"nestegg/internal/auth"
	"nestegg/internal/backend"
	"nestegg/internal/cache"
	"nestegg/internal/cli"
	apphttp "nestegg/internal/http"
	applog "nestegg/internal/log"
	"nestegg/internal/services"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(cfg, applog.ComponentApp)

	logger.Info("Starting nestegg", "backend", cfg.DataBackend, "port", cfg.Port)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	store, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	overviewCache := cache.NewLRUCache[*services.Overview](1000, cfg.OverviewCacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register("overview", overviewCache)
	cacheManager.StartCleanup(time.Minute)

	overview := services.NewOverviewService(store.Store, overviewCache, cfg.BalanceLookbackYears)
	checks := map[string]apphttp.Check{"store": store.Ping}

	// AMQP is optional; without it balance writes are only picked up by the
	// worker's periodic pass.
	var publisher services.BalancePublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			checks["amqp"] = func(context.Context) error {
				if !amqpClient.Healthy() {
					return errors.New("channel closed")
				}
				return nil
			}
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	accounts := services.NewAccountService(store.Store, publisher, overview)
	if amqpClient != nil {
		accounts.OnClose(amqpClient)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Accounts:           accounts,
		Overview:           overview,
		Sessions:           auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Checks:             checks,
		CacheStats:         overviewCache.Stats,
	})
	if err != nil {
		logger.Error("Failed to create HTTP server", "error", err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if err := accounts.Close(); err != nil {
			logger.Error("Failed to close account service", "error", err)
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close store", "error", err)
			}
		}
	})

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
