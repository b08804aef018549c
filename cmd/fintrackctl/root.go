package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
)

var flagOwner string

var rootCmd = &cobra.Command{
	Use:           "fintrackctl",
	Short:         "Operate a fintrack deployment",
	Long:          "Run migrations, sweeps and one-off maintenance against the configured fintrack store.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.RenderWarning(err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagOwner, "owner", "o", "", "Owner ID the command acts for")
}

func requireOwner() (string, error) {
	if flagOwner == "" {
		return "", errors.New("--owner is required")
	}
	return flagOwner, nil
}

// withApp bootstraps configuration and the backend, runs fn and releases the
// backend afterwards.
func withApp(fn func(ctx context.Context, cfg *config.Config, app *cli.App) error) error {
	cfg, logger := cli.Bootstrap(log.ComponentCLI)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	app := cli.OpenApp(ctx, logger, cfg)
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close backend", "error", err)
		}
	}()
	return fn(ctx, cfg, app)
}
