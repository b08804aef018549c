package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
)

var checkAlertsCmd = &cobra.Command{
	Use:   "check-alerts",
	Short: "Raise budget alerts for budgets at or past their threshold",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		owner, err := requireOwner()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, _ *config.Config, app *cli.App) error {
			result, err := app.Services.Budgets.CheckAlerts(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.AlertTable(owner, result)))
			return nil
		})
	},
}

var sendRemindersCmd = &cobra.Command{
	Use:   "send-reminders",
	Short: "Send due calendar reminders",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		owner, err := requireOwner()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, _ *config.Config, app *cli.App) error {
			run, err := app.Services.Calendar.SendReminders(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Println()
			fmt.Print(cli.RenderTable(cli.ReminderTable(owner, run)))
			return nil
		})
	},
}

var backfillCmd = &cobra.Command{
	Use:   "backfill-categories",
	Short: "Link uncategorized expenses to categories by label",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		owner, err := requireOwner()
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, _ *config.Config, app *cli.App) error {
			n, err := app.Services.Expenses.BackfillCategories(ctx, owner)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d expense(s) linked\n", owner, n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(checkAlertsCmd, sendRemindersCmd, backfillCmd)
}
