package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dknog/indico-plugin-stripe/internal/app"
	"github.com/dknog/indico-plugin-stripe/internal/config"
	"github.com/dknog/indico-plugin-stripe/internal/repository/postgres"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the settings and transaction tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Log, os.Stderr)

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			db, err := app.NewDatabase(ctx, cfg.Database, nil)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()

			if err := postgres.RunMigrations(ctx, db); err != nil {
				return err
			}

			logger.Info("migrations applied", "database", cfg.Database.DBName)
			return nil
		},
	}
}
