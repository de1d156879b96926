package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/lrs-backtest/internal/api"
	"github.com/yourusername/lrs-backtest/internal/datasource"
	"github.com/yourusername/lrs-backtest/internal/health"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func serve(ctx context.Context) error {
	deps, err := setupDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"provider":    cfg.MarketData.Provider,
		"version":     Version,
	}).Info("LRS backtest service starting")

	checker := health.NewChecker(health.Config{
		ServiceName: cfg.App.Name,
		Version:     Version,
		Commit:      GitCommit,
		Logger:      appLog,
	})
	if deps.db != nil {
		checker.AddCheck("database", deps.db)
	}
	if deps.chain.HTTP != nil {
		checker.AddCheck("market_data", marketDataCheck(deps.chain.HTTP))
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsPath = cfg.Metrics.Path
	}

	router := api.NewRouter(api.RouterConfig{
		Backtest:    api.NewBacktestHandler(deps.engine, deps.btConfig, cfg.RequestTimeout(), appLog),
		Health:      checker,
		MetricsPath: metricsPath,
		Logger:      appLog,
	})

	if cfg.Cache.WarmSchedule != "" {
		warmer := scheduler.NewScheduler(deps.engine, appLog)
		if err := warmer.ScheduleCacheWarm(cfg.Cache.WarmSchedule, deps.btConfig.DefaultParams); err != nil {
			return fmt.Errorf("failed to schedule cache warm: %w", err)
		}
		if err := warmer.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := warmer.Stop(stopCtx); err != nil {
				appLog.WithError(err).Warn("Scheduler did not stop cleanly")
			}
		}()
	}

	checker.SetReady(true)
	return api.NewServer(cfg, router, appLog).Run(ctx)
}

// marketDataCheck reports the upstream as unready while its breaker is open
func marketDataCheck(client *datasource.RateLimitedHTTPClient) health.PingFunc {
	return func(context.Context) error {
		if client.IsOpen() {
			return datasource.ErrCircuitOpen
		}
		return nil
	}
}
