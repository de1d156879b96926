package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/lrs-backtest/internal/backtest"
	"github.com/yourusername/lrs-backtest/internal/models"
)

var runFlags struct {
	start    string
	end      string
	maPeriod int
	leverage float64
	csvPath  string
}

func init() {
	runCmd.Flags().StringVar(&runFlags.start, "start", "", "Start date (YYYY-MM-DD), defaults to backtest.default_start")
	runCmd.Flags().StringVar(&runFlags.end, "end", "", "End date (YYYY-MM-DD), defaults to today (UTC)")
	runCmd.Flags().IntVar(&runFlags.maPeriod, "ma-period", 0, "Moving average period in trading days")
	runCmd.Flags().Float64Var(&runFlags.leverage, "leverage", 0, "Leverage multiple of the equity leg")
	runCmd.Flags().StringVar(&runFlags.csvPath, "csv", "", "Write the daily paths to this CSV file")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one backtest and print the report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		deps, err := setupDependencies(ctx)
		if err != nil {
			return err
		}
		defer deps.Close()

		params, err := runParams(deps.btConfig, time.Now())
		if err != nil {
			return err
		}

		result, err := deps.engine.Run(ctx, params)
		if err != nil {
			return fmt.Errorf("backtest failed: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), backtest.GenerateConsoleReport(result))
		if runFlags.csvPath != "" {
			if err := backtest.GenerateCSVExport(result, runFlags.csvPath); err != nil {
				return fmt.Errorf("failed to write csv: %w", err)
			}
			appLog.WithField("path", runFlags.csvPath).Info("CSV export written")
		}
		return nil
	},
}

// runParams overlays the command-line flags on the configured defaults
func runParams(btConfig backtest.BacktestConfig, now time.Time) (backtest.Params, error) {
	params := btConfig.DefaultParams(now)
	if runFlags.start != "" {
		start, err := time.Parse(models.DateLayout, runFlags.start)
		if err != nil {
			return params, fmt.Errorf("invalid --start: %w", err)
		}
		params.Start = start
	}
	if runFlags.end != "" {
		end, err := time.Parse(models.DateLayout, runFlags.end)
		if err != nil {
			return params, fmt.Errorf("invalid --end: %w", err)
		}
		params.End = end
	}
	if runFlags.maPeriod != 0 {
		params.MAPeriod = runFlags.maPeriod
	}
	if runFlags.leverage != 0 {
		params.Leverage = runFlags.leverage
	}
	return params, nil
}
