package main

import (
	"errors"

	"github.com/Spok95/estimate-bot/internal/infra/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Применить миграции Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Postgres.DSN == "" {
			return errors.New("postgres.dsn is required")
		}
		if err := db.Migrate(cfg.Postgres.DSN); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	},
}
