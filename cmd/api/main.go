package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/compressly/compressly/config"
	"github.com/compressly/compressly/internal/api/router"
	"github.com/compressly/compressly/internal/auth"
	"github.com/compressly/compressly/internal/compressor"
	"github.com/compressly/compressly/internal/db/postgres"
	"github.com/compressly/compressly/internal/logger"
	"github.com/compressly/compressly/internal/session"
	"github.com/compressly/compressly/internal/storage/minio"
	"github.com/compressly/compressly/internal/tracing"
)

func main() {
	// Create a context that will be canceled on shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Setup logger
	logger.Setup(&cfg.Log)

	// Setup tracing
	tracingCleanup, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer tracingCleanup()

	// Create database repository
	repo, err := postgres.NewRepository(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create database repository")
	}
	defer repo.Close()

	// Create MinIO client
	store, err := minio.NewClient(&cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MinIO client")
	}
	defer store.Close()

	// Create session manager and start expiring idle sessions
	defaultOpts := compressor.Options{
		MaxDimension: cfg.Compression.MaxDimension,
		MaxSizeBytes: cfg.Compression.MaxSizeBytes,
		Quality:      cfg.Compression.Quality,
	}
	manager := session.NewManager(compressor.New(), defaultOpts, &cfg.Session)
	manager.StartSweeper(ctx, cfg.Session.SweepInterval)

	// Setup router
	r := router.Setup(cfg, repo, store, manager, auth.NewTokenProvider(&cfg.Auth))

	// Configure HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info().Str("address", server.Addr).Msg("Starting API server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	// Set up signal handling for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Wait for interruption signal
	<-quit
	log.Info().Msg("Shutting down API server...")

	// Cancel the context to signal all services to shut down
	cancel()

	// Create a deadline for the shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shut down the server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("API server forced to shutdown")
	}

	log.Info().Msg("API server stopped")
}
