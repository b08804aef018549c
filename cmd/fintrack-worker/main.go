package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
	ports "fintrack/internal/sheets"
	"fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentWorker)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	app := cli.OpenApp(ctx, logger, cfg)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	var ledger ports.LedgerWriter
	if cfg.SheetsEnabled() {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to create Google Sheets client", "error", err)
			os.Exit(1)
		}
		ledger = client
	} else {
		logger.Info("Google Sheets export disabled")
	}
	events := worker.NewEventWorker(ledger)

	sweeper := services.NewSweepProcessor(app.Services.Budgets, app.Services.Calendar, services.SweepProcessorConfig{
		Interval: cfg.SweepInterval,
		Owners:   cfg.SweepOwners,
	})
	if len(cfg.SweepOwners) == 0 {
		logger.Warn("No sweep owners configured, budget alerts and reminders will not run")
	} else if err := sweeper.Start(ctx); err != nil {
		logger.Error("Failed to start sweep processor", "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)

	if consumer := app.Backend.Publisher; consumer != nil {
		g.Go(func() error {
			logger.Info("Consuming events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			err := consumer.Consume(gctx, events.HandleEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Warn("AMQP not configured, event consumer disabled")
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return sweeper.Stop(shutdownCtx)
	})

	logger.Info("Worker started", "backend", cfg.DataBackend, "sweep_owners", len(cfg.SweepOwners))
	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
