package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQLite schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		dbPath, err := sqlitePath()
		if err != nil {
			return err
		}
		if err := storage.RunMigrations(dbPath); err != nil {
			return err
		}
		return printVersion(dbPath)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1 step)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		dbPath, err := sqlitePath()
		if err != nil {
			return err
		}
		if err := storage.RollbackMigrations(dbPath, steps); err != nil {
			return err
		}
		return printVersion(dbPath)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		dbPath, err := sqlitePath()
		if err != nil {
			return err
		}
		return printVersion(dbPath)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

func sqlitePath() (string, error) {
	cfg, _ := cli.Bootstrap(log.ComponentCLI)
	if cfg.DataBackend != "sqlite" {
		return "", errors.New("migrations only apply to the sqlite backend")
	}
	return cfg.SQLiteDBPath, nil
}

func printVersion(dbPath string) error {
	version, dirty, ok, err := storage.MigrationVersion(dbPath)
	if err != nil {
		return err
	}
	switch {
	case !ok:
		fmt.Printf("%s: no migrations applied\n", dbPath)
	case dirty:
		fmt.Println(cli.RenderWarning(fmt.Sprintf("%s: version %d (dirty)", dbPath, version)))
	default:
		fmt.Printf("%s: version %d\n", dbPath, version)
	}
	return nil
}
