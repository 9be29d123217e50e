package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dekdek-app/dekdek/internal/account"
	"github.com/dekdek-app/dekdek/internal/config"
	"github.com/dekdek-app/dekdek/internal/logging"
	"github.com/dekdek-app/dekdek/internal/store"
	"github.com/dekdek-app/dekdek/internal/validation"
	"github.com/dekdek-app/dekdek/pkg/client"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg      *config.ClientConfig
	logger   *zap.Logger
	kv       store.Store
	backend  *client.Client
	accounts *account.Service
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dekdek",
	Short: "DekDek - developmental assessment for young children",
	Long: `dekdek signs parents and supervisors in, manages children and rooms,
and walks a rater through the five developmental aspects item by item.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadClient(configPath)
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

		kv, err = store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		backend = client.NewClient(cfg.API.BaseURL,
			client.WithTimeout(cfg.API.Timeout),
			client.WithTokenSource(func(ctx context.Context) (string, error) {
				return accounts.TokenSource()(ctx)
			}),
		)
		accounts = account.NewService(backend, kv, logger)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		if closer, ok := kv.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(childrenCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, describe(err))
		os.Exit(1)
	}
}

// describe turns an error into the line shown to the user
func describe(err error) string {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return verrs.Error()
	case errors.Is(err, store.ErrNotLoggedIn), errors.Is(err, account.ErrSessionExpired):
		return err.Error() + " (run: dekdek login)"
	case client.StatusCode(err) != 0, errors.Is(err, client.ErrMissingAttemptToken):
		return client.UserMessage(err)
	}
	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		return client.UserMessage(err)
	}
	return err.Error()
}

// signedIn returns the stored identity, refusing expired tokens
func signedIn(ctx context.Context) (*store.Identity, error) {
	return accounts.RequireFresh(ctx)
}

func parseID(name, s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, s)
	}
	return id, nil
}
