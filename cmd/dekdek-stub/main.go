package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/api"
	"github.com/dekdek-app/dekdek/internal/catalog"
	"github.com/dekdek-app/dekdek/internal/cleanup"
	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/logging"
	"github.com/dekdek-app/dekdek/internal/progression"
	"github.com/dekdek-app/dekdek/internal/storage"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger

	serveSeed bool
)

var rootCmd = &cobra.Command{
	Use:          "dekdek-stub",
	Short:        "Reference backend for the DekDek client",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadServer(configPath)
		if err != nil {
			return err
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	serveCmd.Flags().BoolVar(&serveSeed, "seed", false, "Create the demo accounts before serving")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openRepository returns the in-memory repository when no DSN is set,
// otherwise a migrated PostgreSQL repository
func openRepository(ctx context.Context) (storage.Repository, error) {
	if cfg.Database.DSN == "" {
		logger.Warn("no database dsn configured, data lives in memory only")
		return storage.NewMemoryRepository(), nil
	}

	if cfg.Database.AdminDSN != "" {
		if err := storage.EnsureDatabase(ctx, cfg.Database.AdminDSN, cfg.Database.DSN, logger); err != nil {
			return nil, err
		}
	}

	repo, err := storage.NewPostgresRepository(ctx, storage.PostgresConfig{DSN: cfg.Database.DSN})
	if err != nil {
		return nil, fmt.Errorf("failed to create database repository: %w", err)
	}

	logger.Info("running database migrations", zap.String("dir", cfg.Database.Migrations))
	if _, err := storage.RunMigrations(ctx, repo.Pool(), cfg.Database.Migrations, logger); err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("database connected successfully")
	return repo, nil
}

func serve(parent context.Context) error {
	logger.Info("starting dekdek-stub",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
	)

	initCtx, initCancel := context.WithTimeout(parent, 30*time.Second)
	defer initCancel()

	repo, err := openRepository(initCtx)
	if err != nil {
		return err
	}
	defer repo.Close()

	if serveSeed {
		if err := seed(initCtx, repo); err != nil {
			return err
		}
	}

	loader := catalog.NewLoader(logger.Named("catalog"))
	if err := loader.LoadFromDir(cfg.Catalog.Dir); err != nil {
		return fmt.Errorf("failed to load catalog from %s: %w", cfg.Catalog.Dir, err)
	}

	hub := api.NewHub()
	tokens := api.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	engine := progression.NewEngine(loader, repo, logger.Named("progression"), progression.WithPublisher(hub))

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cleaner := cleanup.NewCleaner(repo, cfg.Cleanup.Interval, cfg.Cleanup.NotificationRetention, logger.Named("cleanup"))
	cleanerDone := cleaner.Start(ctx)

	server := api.NewServer(cfg.Server, repo, engine, tokens, hub, logger.Named("api"))
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		// WriteTimeout is left unset: the notification stream stays open
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	<-cleanerDone

	logger.Info("dekdek-stub stopped")
	return nil
}
