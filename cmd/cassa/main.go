package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/joho/godotenv"

	"cassa/internal/amqp"
	"cassa/internal/config"
	apphttp "cassa/internal/http"
	applog "cassa/internal/log"
	"cassa/internal/services"
	"cassa/internal/storage"
)

func main() {
	// Load .env for local development; absent in production is fine.
	_ = godotenv.Load()

	applog.Setup()

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

	// The archive pipeline is optional: without AMQP the app still works,
	// entries just stay pending until a worker picks them up.
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		slog.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		slog.Info("AMQP disabled - no AMQP_URL provided")
	}

	ledgerSvc := services.NewLedgerService(repo, events)

	srv := apphttp.NewServer(":"+cfg.Port, ledgerSvc, cfg.RateLimitPerMinute)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		slog.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	slog.Info("Starting cassa server", "port", cfg.Port, "db", cfg.DBPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	slog.Info("Server stopped gracefully")
}
