package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/middleware/auth"
	"fintrack/internal/middleware/ratelimit"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	app := cli.OpenApp(ctx, logger, cfg)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()

	deps := apphttp.Deps{
		Services: app.Services,
		Store:    app.Backend.Store,
		Logger:   logger.WithComponent(log.ComponentHTTP),
		Caches:   map[string]apphttp.Sizer{"exchange_rates": app.Rates.Cache()},
	}
	if app.Backend.Publisher != nil {
		deps.Broker = app.Backend.Publisher
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		Auth: auth.Config{
			Secret:              []byte(cfg.JWTSecret),
			Issuer:              cfg.JWTIssuer,
			AllowHeaderIdentity: cfg.AllowHeaderIdentity,
		},
		RateLimit:      ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		MaxUploadBytes: cfg.DocumentMaxBytes,
	}, deps)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return cache.NewJanitor(app.Rates.Cache()).Run(gctx, 5*time.Minute)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
