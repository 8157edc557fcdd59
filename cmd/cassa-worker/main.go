package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"cassa/internal/amqp"
	"cassa/internal/config"
	applog "cassa/internal/log"
	gsheet "cassa/internal/sheets/google"
	"cassa/internal/storage"
	"cassa/internal/worker"
)

func main() {
	_ = godotenv.Load()

	applog.Setup()
	slog.Info("Starting cassa-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewRepository(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize repository", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer repo.Close()

	if cfg.SpreadsheetID == "" {
		slog.Error("GOOGLE_SPREADSHEET_ID is required for the archive worker")
		os.Exit(1)
	}
	sheetsClient, err := gsheet.NewFromEnv(context.Background())
	if err != nil {
		slog.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	slog.Info("Google Sheets client initialized", "spreadsheet_id", cfg.SpreadsheetID)

	if cfg.AMQPURL == "" {
		slog.Error("AMQP_URL is required for the archive worker")
		os.Exit(1)
	}
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		slog.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	syncWorker := worker.NewSyncWorker(repo, sheetsClient, sheetsClient, cfg.SyncBatchSize)

	// Catch up on anything written while the worker was down.
	slog.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		slog.Error("Startup sync check failed", "error", err)
	}

	go func() {
		if err := amqpClient.ConsumeLedgerEvents(ctx, syncWorker.HandleEvent); err != nil {
			if err != context.Canceled {
				slog.Error("Event consumption failed", "error", err)
			}
			cancel()
		}
	}()

	// Periodic sweep as a backstop for lost messages.
	ticker := time.NewTicker(cfg.SyncInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.ProcessPending(ctx); err != nil {
					slog.Error("Periodic sync failed", "error", err)
				}
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled")
	}

	cancel()
	slog.Info("Worker shutdown complete")
}
