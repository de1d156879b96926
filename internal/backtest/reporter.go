package backtest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// GenerateConsoleReport formats metrics for terminal output
func GenerateConsoleReport(run *RunResult) string {
	m := run.Metrics
	var builder strings.Builder
	builder.WriteString("===== LRS Financial Metrics =====\n")
	builder.WriteString(fmt.Sprintf("Period       : %s -> %s (%d trading days)\n",
		formatDate(m.StartDate), formatDate(m.EndDate), m.TradingDays))
	builder.WriteString(fmt.Sprintf("Parameters   : MA %d, leverage %.2fx (%s)\n",
		run.Params.MAPeriod, run.Params.Leverage, run.LeverageMode))
	builder.WriteString(strings.Repeat("-", 33) + "\n")
	builder.WriteString(fmt.Sprintf("Final NAV    : %s\n", formatMetric(m.FinalNAV, "%.2f")))
	builder.WriteString(fmt.Sprintf("CAGR         : %s\n", formatPercent(m.CAGR)))
	builder.WriteString(fmt.Sprintf("Volatility   : %s\n", formatPercent(m.Volatility)))
	builder.WriteString(fmt.Sprintf("Sharpe       : %s\n", formatMetric(m.Sharpe, "%.2f")))
	builder.WriteString(fmt.Sprintf("Sortino      : %s\n", formatMetric(m.Sortino, "%.2f")))
	builder.WriteString(fmt.Sprintf("Max Drawdown : %s\n", formatPercent(m.MaxDrawdown)))
	builder.WriteString(fmt.Sprintf("Calmar       : %s\n", formatMetric(m.Calmar, "%.2f")))
	builder.WriteString(fmt.Sprintf("Win Rate     : %s\n", formatPercent(m.WinRate)))
	if m.RecoveryDays != nil {
		builder.WriteString(fmt.Sprintf("Recovery     : %d trading days\n", *m.RecoveryDays))
	} else {
		builder.WriteString("Recovery     : not recovered\n")
	}
	builder.WriteString(fmt.Sprintf("Signal zones : %d\n", len(run.Zones)))

	b := run.BenchmarkMetrics
	builder.WriteString("\n----- Benchmark -----\n")
	builder.WriteString(fmt.Sprintf("Final NAV    : %s\n", formatMetric(b.FinalNAV, "%.2f")))
	builder.WriteString(fmt.Sprintf("CAGR         : %s\n", formatPercent(b.CAGR)))
	builder.WriteString(fmt.Sprintf("Sharpe       : %s\n", formatMetric(b.Sharpe, "%.2f")))
	builder.WriteString(fmt.Sprintf("Max Drawdown : %s\n", formatPercent(b.MaxDrawdown)))

	if len(m.AnnualReturns) > 0 {
		builder.WriteString("\nYear   Strategy   Benchmark\n")
		for _, year := range SortedYears(m.AnnualReturns) {
			bench, ok := m.BenchmarkAnnualReturns[year]
			if !ok {
				bench = math.NaN()
			}
			builder.WriteString(fmt.Sprintf("%d  %9s  %10s\n", year,
				formatMetric(m.AnnualReturns[year], "%.2f%%"), formatMetric(bench, "%.2f%%")))
		}
	}
	return builder.String()
}

// GenerateCSVExport writes the strategy NAV next to each instrument path
func GenerateCSVExport(run *RunResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}

	// #nosec G304 -- path comes from the operator's --csv flag.
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create csv export: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"date", "nav", "stock", "stock_1x", "gold", "sp500", "ma", "position"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, date := range run.Dates {
		record := []string{
			date.Format(models.DateLayout),
			csvValue(run.NAV, i),
			csvValue(run.Stock, i),
			csvValue(run.Stock1x, i),
			csvValue(run.Defensive, i),
			csvValue(run.Benchmark, i),
			csvValue(run.MA, i),
			run.Positions[i].String(),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv export: %w", err)
	}
	return file.Close()
}

func csvValue(s NAVSeries, i int) string {
	if i >= len(s) || math.IsNaN(s[i].Value) || math.IsInf(s[i].Value, 0) {
		return ""
	}
	return formatFloat(s[i].Value)
}

func formatMetric(v float64, format string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

func formatPercent(v float64) string {
	return formatMetric(v*100, "%.2f%%")
}
