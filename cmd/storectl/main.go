package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/apiclient"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logging"
)

var (
	cfg    config.Config
	logger *zap.Logger
	apiURL string
)

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "storectl",
	Short:         "Storefront admin and shopping CLI",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg = config.FromEnv()
		l, err := logging.New(cfg.LogLevel, cfg.Environment)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		logger = l.Named("storectl")
		if apiURL == "" {
			apiURL = cfg.APIBaseURL
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "storefront API base URL (default $API_BASE_URL)")

	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(importProductsCmd)
	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(cartCmd)
}

func connect(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, cfg.DBConnString, logger)
}

func newClient() *apiclient.Client {
	return apiclient.New(apiURL, "", logger)
}
