package main

import (
	"context"
	"errors"
	"os"
	"time"

	"nestegg/internal/amqp"
	"nestegg/internal/backend"
	"nestegg/internal/cli"
	applog "nestegg/internal/log"
	"nestegg/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting nestegg-worker", "backend", cfg.DataBackend, "interval", cfg.SyncInterval)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	factory := backend.NewFactory(logger)
	store, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	exporter, err := factory.CreateExporter(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", "error", err)
		os.Exit(1)
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Info("AMQP disabled - relying on periodic export only")
	}

	exportWorker := worker.NewExportWorker(store.Store, exporter, cfg.SyncBatchSize, cfg.BalanceLookbackYears)

	ctx, done := cli.GracefulShutdown(logger.Logger, 30*time.Second, func(context.Context) {
		logger.Info("Shutting down worker...")
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if store.Cleanup != nil {
			if err := store.Cleanup(); err != nil {
				logger.Error("Failed to close store", "error", err)
			}
		}
	})

	logger.Info("Performing startup export check...")
	if err := exportWorker.StartupExportCheck(ctx); err != nil {
		logger.Error("Failed startup export check", "error", err)
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeBalanceRecorded(ctx, exportWorker.HandleBalanceRecorded)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			cli.WaitForShutdown(ctx, done)
			logger.Info("Worker shutdown complete")
			return
		case <-ticker.C:
			if err := exportWorker.ProcessPendingExports(ctx); err != nil {
				logger.Error("Periodic export failed", "error", err)
			}
		}
	}
}
