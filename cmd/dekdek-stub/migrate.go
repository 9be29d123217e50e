package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database if needed and apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database dsn is required (DEKDEK_DATABASE_DSN)")
		}
		ctx := cmd.Context()

		if cfg.Database.AdminDSN != "" {
			if err := storage.EnsureDatabase(ctx, cfg.Database.AdminDSN, cfg.Database.DSN, logger); err != nil {
				return err
			}
		}

		repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: cfg.Database.DSN})
		if err != nil {
			return fmt.Errorf("failed to create database repository: %w", err)
		}
		defer repo.Close()

		n, err := storage.RunMigrations(ctx, repo.Pool(), cfg.Database.Migrations, logger)
		if err != nil {
			return err
		}
		logger.Info("migrations complete", zap.Int("applied", n))
		return nil
	},
}
