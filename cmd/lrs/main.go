// Package main provides the entry point for the LRS backtest service and CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/lrs-backtest/internal/backtest"
	"github.com/yourusername/lrs-backtest/internal/config"
	"github.com/yourusername/lrs-backtest/internal/database"
	"github.com/yourusername/lrs-backtest/internal/datasource"
	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/repository"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	configFile string
	cfg        *config.Config
	appLog     *logrus.Logger
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	rootCmd.AddCommand(serveCmd, runCmd)
}

var rootCmd = &cobra.Command{
	Use:   "lrs",
	Short: "Leveraged rotation strategy backtester",
	Long:  `Backtests a moving-average rotation between a leveraged equity fund and a defensive asset, from the command line or over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		appLog = logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(ctx context.Context) error {
	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			return fmt.Errorf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		if err := config.LoadSecretsFromAWS(ctx, cfg, region, secretName); err != nil {
			return fmt.Errorf("failed to load secrets: %w", err)
		}
	}

	return config.Validate(cfg)
}

// dependencies are the long-lived collaborators shared by both commands
type dependencies struct {
	btConfig backtest.BacktestConfig
	engine   *backtest.Engine
	chain    *datasource.Chain
	db       *database.DB
}

func (d *dependencies) Close() {
	if d.chain != nil {
		if err := d.chain.Close(); err != nil {
			appLog.WithError(err).Warn("Failed to close market data client")
		}
	}
	if d.db != nil {
		d.db.Close()
	}
}

func setupDependencies(ctx context.Context) (*dependencies, error) {
	deps := &dependencies{}

	var store repository.PriceRepository
	if cfg.Database.Enabled {
		db, err := database.Initialize(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		deps.db = db
		repos, err := repository.NewRepositories(db)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to initialize repositories: %w", err)
		}
		store = repos.Price
		appLog.WithField("host", cfg.Database.Host).Info("Durable price store enabled")
	}

	chain, err := datasource.NewProvider(cfg, appLog, store)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to build market data provider: %w", err)
	}
	deps.chain = chain

	deps.btConfig, err = backtest.FromConfig(cfg)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}

	deps.engine, err = backtest.NewEngine(chain.Provider, deps.btConfig, appLog)
	if err != nil {
		deps.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	return deps, nil
}
