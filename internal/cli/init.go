// Package cli provides the initialization shared by cmd/fintrack,
// cmd/fintrack-worker and cmd/fintrackctl.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/documents"
	"fintrack/internal/documents/gcs"
	"fintrack/internal/documents/local"
	"fintrack/internal/exchange"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

// SetupLogger builds the process logger from the level and format strings
// and installs it as the slog default. An unknown level falls back to info.
func SetupLogger(level, format, component string) *log.Logger {
	cfg := log.DefaultConfig()
	if lvl, err := log.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	if format == "json" {
		cfg.Format = "json"
	}
	cfg.Component = component

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// Bootstrap loads .env and the configuration, then sets up the logger the
// configuration asks for.
func Bootstrap(component string) (*config.Config, *log.Logger) {
	LoadEnvFile()
	logger := SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"), component)
	cfg := LoadAndValidateConfig(logger)
	return cfg, SetupLogger(cfg.LogLevel, cfg.LogFormat, component)
}

// App is the wired application: store, optional publisher, document files
// and services.
type App struct {
	Backend  *backend.BackendResult
	Rates    *exchange.Service
	Files    documents.Store
	Services *services.Services

	closeFiles func() error
}

// OpenDocumentStore returns the GCS store when a bucket is configured and the
// local directory store otherwise. The returned func releases the store.
func OpenDocumentStore(ctx context.Context, cfg *config.Config) (documents.Store, func() error, error) {
	if cfg.DocumentGCSBucket != "" {
		s, err := gcs.New(ctx, gcs.Config{
			Bucket:          cfg.DocumentGCSBucket,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("open document bucket: %w", err)
		}
		return s, s.Close, nil
	}
	s, err := local.New(cfg.DocumentDir)
	if err != nil {
		return nil, nil, err
	}
	return s, func() error { return nil }, nil
}

// OpenApp creates the configured backend and wires the services on it.
// Returns the app or exits the process on failure.
func OpenApp(ctx context.Context, logger *log.Logger, cfg *config.Config) *App {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	files, closeFiles, err := OpenDocumentStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize document storage", "error", err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	rates := exchange.NewService(cfg.ExchangeRateURL, cfg.ExchangeRateTTL, cfg.ExchangeRateTimeout)
	deps := services.Deps{Store: result.Store, Files: files}
	if result.Publisher != nil {
		deps.Publisher = result.Publisher
	}
	return &App{
		Backend:    result,
		Rates:      rates,
		Files:      files,
		Services:   services.New(deps, rates),
		closeFiles: closeFiles,
	}
}

// Close releases the document store and the backend.
func (a *App) Close() error {
	var err error
	if a.closeFiles != nil {
		err = a.closeFiles()
	}
	return errors.Join(err, a.Backend.Cleanup())
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
