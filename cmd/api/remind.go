package main

import (
	"fmt"

	"pet-health-tracker/internal/platform/clock"
	"pet-health-tracker/internal/router"

	"github.com/spf13/cobra"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Corre una vez el chequeo de recordatorios y termina",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		db, err := openDB(ctx, cfg.Database)
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
		}

		svcs := router.NewServices(router.Options{DB: db, Logger: log, Clock: clock.System{}})
		rem, err := newReminders(ctx, svcs.CareItems)
		if err != nil {
			return err
		}
		defer rem.Close()

		ctx, cancel := contextWithOptionalTimeout(ctx, cfg.Reminders.Timeout)
		defer cancel()

		sent, err := rem.Checker.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reminders sent: %d\n", sent)
		return nil
	},
}
