package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/db/postgres"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/storage/minio"
)

// One-shot connectivity check for the backing services. Exits non-zero when
// any check fails so it can gate deploys.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(&cfg.Log)
	diagLogger := logger.GetLogger("diagnose")

	failed := false

	repo, err := postgres.NewRepository(ctx, &cfg.Database)
	if err != nil {
		diagLogger.Error().Err(err).Msg("Database connection failed")
		failed = true
	} else {
		defer repo.Close()
		if err := repo.Ping(ctx); err != nil {
			diagLogger.Error().Err(err).Msg("Database ping failed")
			failed = true
		} else {
			diagLogger.Info().Msg("Database OK")
		}
	}

	store, err := minio.NewClient(&cfg.MinIO)
	if err != nil {
		diagLogger.Error().Err(err).Msg("Storage connection failed")
		failed = true
	} else {
		defer store.Close()
		if err := store.Diagnose(ctx); err != nil {
			diagLogger.Error().Err(err).Msg("Storage diagnostics failed")
			failed = true
		} else {
			diagLogger.Info().Msg("Storage OK")
		}
	}

	if failed {
		os.Exit(1)
	}
	diagLogger.Info().Msg("All diagnostics passed")
}
