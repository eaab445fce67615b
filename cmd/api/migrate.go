package main

import (
	"errors"
	"fmt"

	pg "pet-health-tracker/internal/adapters/storage/postgres"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Crea tablas e índices en Postgres (idempotente)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.Database.DSN == "" {
			return errors.New("database dsn is required (DB_DSN)")
		}
		db, err := pg.Open(cfg.Database.DSN, poolOptions(cfg.Database))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		if err := pg.EnsureSchema(cmd.Context(), db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		log.Info("schema up to date", nil)
		return nil
	},
}
