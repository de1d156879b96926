package backtest

import (
	"math"
	"time"
)

// zeroVolatility absorbs rounding noise when every return is identical
const zeroVolatility = 1e-14

// MetricsConfig holds the conventions used to annualise statistics
type MetricsConfig struct {
	TradingDaysPerYear int
	RiskFreeRate       float64
	RollingWindow      int
}

// DefaultMetricsConfig returns the 252-day, zero risk-free conventions
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		TradingDaysPerYear: 252,
		RiskFreeRate:       0,
		RollingWindow:      252,
	}
}

func (c MetricsConfig) periodsPerYear() float64 {
	if c.TradingDaysPerYear <= 0 {
		return 252
	}
	return float64(c.TradingDaysPerYear)
}

func (c MetricsConfig) window() int {
	if c.RollingWindow <= 0 {
		return 252
	}
	return c.RollingWindow
}

// Metrics represents strategy performance over the displayed range.
// Undefined ratios are NaN.
type Metrics struct {
	FinalNAV               float64
	CAGR                   float64
	Volatility             float64
	Sharpe                 float64
	Sortino                float64
	MaxDrawdown            float64
	WinRate                float64
	Calmar                 float64
	RecoveryDays           *int
	StartDate              time.Time
	EndDate                time.Time
	TradingDays            int
	AnnualReturns          map[int]float64
	BenchmarkAnnualReturns map[int]float64
	Drawdown               NAVSeries
	RollingSharpe          NAVSeries
}

// ComputeMetrics derives the scalar statistics and derived series for a NAV
// path and its benchmark
func ComputeMetrics(nav, benchmark NAVSeries, cfg MetricsConfig) Metrics {
	nan := math.NaN()
	m := Metrics{
		FinalNAV:               nan,
		CAGR:                   nan,
		Volatility:             nan,
		Sharpe:                 nan,
		Sortino:                nan,
		MaxDrawdown:            nan,
		WinRate:                nan,
		Calmar:                 nan,
		TradingDays:            len(nav),
		AnnualReturns:          AnnualReturns(nav),
		BenchmarkAnnualReturns: AnnualReturns(benchmark),
		Drawdown:               nav.Drawdowns(),
		RollingSharpe:          RollingSharpe(nav, cfg),
	}
	if len(nav) == 0 {
		return m
	}

	m.StartDate = nav[0].Date
	m.EndDate = nav[len(nav)-1].Date
	m.FinalNAV = nav[len(nav)-1].Value
	m.MaxDrawdown = calculateMaxDrawdown(nav)
	m.RecoveryDays = calculateRecoveryDays(nav)

	returns := nav.Returns()
	ppy := cfg.periodsPerYear()
	m.CAGR = calculateCAGR(nav, ppy)
	m.Volatility = calculateVolatility(returns, ppy)
	m.Sharpe = calculateSharpeRatio(returns, cfg.RiskFreeRate, ppy)
	m.Sortino = calculateSortinoRatio(returns, cfg.RiskFreeRate, ppy)
	m.WinRate = calculateWinRate(returns)
	m.Calmar = calculateCalmar(m.CAGR, m.MaxDrawdown)
	return m
}

func calculateCAGR(nav NAVSeries, periodsPerYear float64) float64 {
	periods := len(nav) - 1
	if periods < 1 || nav[0].Value <= 0 {
		return math.NaN()
	}
	ratio := nav[periods].Value / nav[0].Value
	return math.Pow(ratio, periodsPerYear/float64(periods)) - 1
}

func calculateVolatility(returns []float64, periodsPerYear float64) float64 {
	return stddev(returns) * math.Sqrt(periodsPerYear)
}

func calculateSharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	std := stddev(returns)
	if math.IsNaN(std) || std < zeroVolatility {
		return math.NaN()
	}
	return (average(returns) - riskFreeRate/periodsPerYear) / std * math.Sqrt(periodsPerYear)
}

func calculateSortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) float64 {
	downside := downsideDeviation(returns)
	if math.IsNaN(downside) || downside < zeroVolatility {
		return math.NaN()
	}
	return (average(returns) - riskFreeRate/periodsPerYear) / downside * math.Sqrt(periodsPerYear)
}

func calculateMaxDrawdown(nav NAVSeries) float64 {
	if len(nav) == 0 {
		return math.NaN()
	}
	maxDD := 0.0
	for _, p := range nav.Drawdowns() {
		if p.Value < maxDD {
			maxDD = p.Value
		}
	}
	return maxDD
}

// calculateRecoveryDays counts trading days from the deepest trough until the
// NAV regains the peak that preceded it. Nil while still under water.
func calculateRecoveryDays(nav NAVSeries) *int {
	if len(nav) == 0 {
		return nil
	}
	peak := nav[0].Value
	troughIdx, troughPeak, worst := 0, peak, 0.0
	for i, p := range nav {
		if p.Value > peak {
			peak = p.Value
		}
		if peak <= 0 {
			continue
		}
		if dd := p.Value/peak - 1; dd < worst {
			worst, troughIdx, troughPeak = dd, i, peak
		}
	}

	if worst == 0 {
		days := 0
		return &days
	}
	for j := troughIdx + 1; j < len(nav); j++ {
		if nav[j].Value >= troughPeak {
			days := j - troughIdx
			return &days
		}
	}
	return nil
}

func calculateCalmar(cagr, maxDrawdown float64) float64 {
	if math.IsNaN(cagr) || math.IsNaN(maxDrawdown) || maxDrawdown >= 0 {
		return math.NaN()
	}
	return cagr / math.Abs(maxDrawdown)
}

// calculateWinRate is the share of daily returns that are strictly positive
func calculateWinRate(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns))
}

// RollingSharpe computes the annualised Sharpe ratio over a trailing window
// of daily returns. Points without a full window or with zero variance are
// omitted.
func RollingSharpe(nav NAVSeries, cfg MetricsConfig) NAVSeries {
	returns := nav.Returns()
	window := cfg.window()
	ppy := cfg.periodsPerYear()

	out := make(NAVSeries, 0)
	for k := window - 1; k < len(returns); k++ {
		sharpe := calculateSharpeRatio(returns[k-window+1:k+1], cfg.RiskFreeRate, ppy)
		if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
			continue
		}
		out = append(out, Point{Date: nav[k+1].Date, Value: sharpe})
	}
	return out
}

// AnnualReturns compounds the daily returns inside each calendar year and
// reports them in percent
func AnnualReturns(nav NAVSeries) map[int]float64 {
	growth := make(map[int]float64)
	for i := 1; i < len(nav); i++ {
		prev := nav[i-1].Value
		if prev == 0 {
			continue
		}
		year := nav[i].Date.Year()
		if _, ok := growth[year]; !ok {
			growth[year] = 1
		}
		growth[year] *= nav[i].Value / prev
	}

	annual := make(map[int]float64, len(growth))
	for year, g := range growth {
		annual[year] = (g - 1) * 100
	}
	return annual
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev is the sample standard deviation
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	mean := average(values)
	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// downsideDeviation treats non-negative days as zero shortfall
func downsideDeviation(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		if v < 0 {
			sum += v * v
		}
	}
	return math.Sqrt(sum / float64(len(values)))
}
