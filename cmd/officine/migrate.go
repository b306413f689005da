package main

import (
	"context"
	"fmt"

	"officine/internal/config"
	"officine/internal/infra"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: withDB(func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
		return infra.Migrate(ctx, db)
	}),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE: withDB(func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
		return infra.MigrationStatus(ctx, db)
	}),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: withDB(func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
		return infra.Rollback(ctx, db)
	}),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd, migrateDownCmd)
}

// withDB opens the configured database for a one-shot command.
func withDB(fn func(ctx context.Context, cfg *config.Config, db *gorm.DB) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := infra.NewDatabase(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		return fn(contextOrBackground(cmd.Context()), cfg, db)
	}
}
