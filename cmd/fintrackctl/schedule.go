package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/config"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule <debt-id>",
	Short: "Print a debt's amortization schedule",
	Args:  cobra.ExactArgs(1),
	RunE:  runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(_ *cobra.Command, args []string) error {
	owner, err := requireOwner()
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid debt id %q", args[0])
	}

	return withApp(func(ctx context.Context, _ *config.Config, app *cli.App) error {
		debt, err := app.Backend.Store.Debts().Get(ctx, owner, id)
		if err != nil {
			return err
		}
		schedule, err := app.Services.Debts.Schedule(ctx, owner, id)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Print(cli.RenderTable(cli.ScheduleTable(debt, schedule)))
		return nil
	})
}
