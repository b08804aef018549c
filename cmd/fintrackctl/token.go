package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/middleware/auth"
)

var flagTokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an owner",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		owner, err := requireOwner()
		if err != nil {
			return err
		}
		cfg, _ := cli.Bootstrap(log.ComponentCLI)
		if cfg.JWTSecret == "" {
			return errors.New("JWT_SECRET is not configured")
		}
		token, err := auth.IssueToken([]byte(cfg.JWTSecret), cfg.JWTIssuer, owner, flagTokenTTL, time.Now())
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().DurationVar(&flagTokenTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
