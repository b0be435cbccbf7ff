package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"nestegg/internal/auth"
	"nestegg/internal/cli"
	applog "nestegg/internal/log"
	"nestegg/internal/mockdata"
	"nestegg/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	bootLogger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.ConfigureLogger(cfg, applog.ComponentStorage)

	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database path")
	userID := flag.String("user", cfg.SeedUserID, "user id that owns the demo portfolio")
	years := flag.Int("years", cfg.BalanceLookbackYears, "years of monthly balance history")
	reset := flag.Bool("reset", false, "drop and recreate the schema before seeding")
	flag.Parse()

	if *userID == "" {
		logger.Error("A user id is required", "flag", "-user")
		os.Exit(2)
	}

	repo := cli.InitSQLite(logger.Logger, *dbPath)
	defer repo.Close()

	if *reset {
		if err := storage.ResetSchema(*dbPath); err != nil {
			logger.Error("Failed to reset schema", "error", err, "path", *dbPath)
			os.Exit(1)
		}
		logger.Info("Schema reset", "path", *dbPath)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := mockdata.Seed(ctx, repo, *userID, time.Now().UTC(), *years); err != nil {
		logger.Error("Failed to seed mock data", "error", err, "user_id", *userID)
		os.Exit(1)
	}
	version, _, err := storage.SchemaVersion(*dbPath)
	if err != nil {
		logger.Warn("Could not read schema version", "error", err)
	}
	logger.Info("Seeded demo portfolio", "user_id", *userID, "years", *years, "path", *dbPath, "schema_version", version)

	token, exp, err := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL).Issue(*userID)
	if err != nil {
		logger.Error("Failed to issue session token", "error", err)
		os.Exit(1)
	}
	fmt.Printf("user:    %s\ntoken:   %s\nexpires: %s\n", *userID, token, exp.Format(time.RFC3339))
}
