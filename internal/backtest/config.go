package backtest

import (
	"fmt"
	"time"

	"github.com/yourusername/lrs-backtest/internal/config"
	"github.com/yourusername/lrs-backtest/internal/models"
)

// Instruments names the ticker playing each strategy role
type Instruments struct {
	Leveraged      string
	Underlying     string
	Benchmark      string
	Defensive      string
	NativeLeverage float64

	// UnderlyingEras and DefensiveEras extend a role back before its
	// instrument listed
	UnderlyingEras []ProxyEra
	DefensiveEras  []ProxyEra
}

// Tickers returns the four role tickers
func (i Instruments) Tickers() []string {
	return []string{i.Leveraged, i.Underlying, i.Benchmark, i.Defensive}
}

// FetchTickers returns every ticker a run reads, without duplicates. The
// leveraged instrument is only read at its native multiple.
func (i Instruments) FetchTickers(native bool) []string {
	var all []string
	if native {
		all = append(all, i.Leveraged)
	}
	all = append(all, roleTickers(i.Underlying, i.UnderlyingEras)...)
	all = append(all, i.Benchmark)
	all = append(all, roleTickers(i.Defensive, i.DefensiveEras)...)

	seen := make(map[string]bool, len(all))
	tickers := make([]string, 0, len(all))
	for _, ticker := range all {
		if !seen[ticker] {
			seen[ticker] = true
			tickers = append(tickers, ticker)
		}
	}
	return tickers
}

// stitched reports whether ticker may be missing for a window: the leveraged
// instrument, the instrument of a role with proxies, or any proxy. The
// benchmark is always required.
func (i Instruments) stitched(ticker string) bool {
	if ticker == i.Benchmark {
		return false
	}
	if ticker == i.Leveraged {
		return true
	}
	if ticker == i.Underlying && len(i.UnderlyingEras) > 0 || ticker == i.Defensive && len(i.DefensiveEras) > 0 {
		return true
	}
	for _, era := range append(append([]ProxyEra{}, i.UnderlyingEras...), i.DefensiveEras...) {
		if era.Ticker == ticker {
			return true
		}
	}
	return false
}

// Limits bounds the user-tunable parameters
type Limits struct {
	MinMAPeriod int
	MaxMAPeriod int
	MinLeverage float64
	MaxLeverage float64
}

// BacktestConfig holds everything a run needs besides its parameters
type BacktestConfig struct {
	Instruments         Instruments
	Limits              Limits
	Metrics             MetricsConfig
	BaseValue           float64
	WarmupEnabled       bool
	DefaultStart        time.Time
	DefaultMAPeriod     int
	DefaultLeverage     float64
	DownsampleThreshold int
}

// DefaultBacktestConfig returns the TQQQ/QQQ/^GSPC/IAU setup with the usual
// bounds. Before QQQ the 1x leg runs on the S&P 500, the Nasdaq Composite and
// the Nasdaq-100; before IAU the defensive leg runs on gold futures, then cash.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Instruments: Instruments{
			Leveraged:      "TQQQ",
			Underlying:     "QQQ",
			Benchmark:      "^GSPC",
			Defensive:      "IAU",
			NativeLeverage: 3.0,
			UnderlyingEras: []ProxyEra{
				{Ticker: "^GSPC", Until: time.Date(1971, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Ticker: "^IXIC", Until: time.Date(1986, 1, 1, 0, 0, 0, 0, time.UTC)},
				{Ticker: "^NDX", Until: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
			},
			DefensiveEras: []ProxyEra{
				{Ticker: "GC=F"},
				{Ticker: CashTicker},
			},
		},
		Limits: Limits{
			MinMAPeriod: 1,
			MaxMAPeriod: 500,
			MinLeverage: 1.0,
			MaxLeverage: 5.0,
		},
		Metrics:             DefaultMetricsConfig(),
		BaseValue:           1.0,
		WarmupEnabled:       true,
		DefaultStart:        time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		DefaultMAPeriod:     200,
		DefaultLeverage:     3.0,
		DownsampleThreshold: 1000,
	}
}

// FromConfig converts app config to backtest config
func FromConfig(cfg *config.Config) (BacktestConfig, error) {
	if cfg == nil {
		return BacktestConfig{}, fmt.Errorf("config is required")
	}
	start, err := time.Parse(models.DateLayout, cfg.Backtest.DefaultStart)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid default start date: %w", err)
	}

	underlyingEras, err := proxyEras(cfg.Instruments.UnderlyingProxies)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid underlying proxies: %w", err)
	}
	defensiveEras, err := proxyEras(cfg.Instruments.DefensiveProxies)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("invalid defensive proxies: %w", err)
	}

	bt := BacktestConfig{
		Instruments: Instruments{
			Leveraged:      cfg.Instruments.Leveraged,
			Underlying:     cfg.Instruments.Underlying,
			Benchmark:      cfg.Instruments.Benchmark,
			Defensive:      cfg.Instruments.Defensive,
			NativeLeverage: cfg.Instruments.NativeLeverage,
			UnderlyingEras: underlyingEras,
			DefensiveEras:  defensiveEras,
		},
		Limits: Limits{
			MinMAPeriod: cfg.Backtest.MinMAPeriod,
			MaxMAPeriod: cfg.Backtest.MaxMAPeriod,
			MinLeverage: cfg.Backtest.MinLeverage,
			MaxLeverage: cfg.Backtest.MaxLeverage,
		},
		Metrics: MetricsConfig{
			TradingDaysPerYear: cfg.Backtest.TradingDaysPerYear,
			RiskFreeRate:       cfg.Backtest.RiskFreeRate,
			RollingWindow:      cfg.Backtest.RollingWindow,
		},
		BaseValue:           cfg.Backtest.BaseValue,
		WarmupEnabled:       cfg.Backtest.WarmupEnabled,
		DefaultStart:        start,
		DefaultMAPeriod:     cfg.Backtest.DefaultMAPeriod,
		DefaultLeverage:     cfg.Backtest.DefaultLeverage,
		DownsampleThreshold: cfg.Backtest.DownsampleThreshold,
	}

	return bt, bt.Validate()
}

// Validate validates backtest config parameters
func (b BacktestConfig) Validate() error {
	for _, ticker := range b.Instruments.Tickers() {
		if ticker == "" {
			return fmt.Errorf("all four instrument tickers are required")
		}
	}
	for _, eras := range [][]ProxyEra{b.Instruments.UnderlyingEras, b.Instruments.DefensiveEras} {
		if err := validateEras(eras); err != nil {
			return err
		}
	}
	if b.Instruments.NativeLeverage <= 0 {
		return fmt.Errorf("native leverage must be positive")
	}
	if b.Limits.MinMAPeriod < 1 || b.Limits.MaxMAPeriod < b.Limits.MinMAPeriod {
		return fmt.Errorf("ma period bounds must satisfy 1 <= min <= max")
	}
	if b.Limits.MinLeverage <= 0 || b.Limits.MaxLeverage < b.Limits.MinLeverage {
		return fmt.Errorf("leverage bounds must satisfy 0 < min <= max")
	}
	if b.BaseValue <= 0 {
		return fmt.Errorf("base value must be positive")
	}
	if b.DownsampleThreshold < 0 {
		return fmt.Errorf("downsample threshold cannot be negative")
	}
	return nil
}

func proxyEras(proxies []config.ProxyConfig) ([]ProxyEra, error) {
	if len(proxies) == 0 {
		return nil, nil
	}
	eras := make([]ProxyEra, len(proxies))
	for i, p := range proxies {
		eras[i].Ticker = p.Ticker
		if p.Until == "" {
			continue
		}
		until, err := time.Parse(models.DateLayout, p.Until)
		if err != nil {
			return nil, fmt.Errorf("proxy %s: %w", p.Ticker, err)
		}
		eras[i].Until = until
	}
	return eras, nil
}

// validateEras requires tickers and strictly ascending dated eras
func validateEras(eras []ProxyEra) error {
	var last time.Time
	for _, era := range eras {
		if era.Ticker == "" {
			return fmt.Errorf("proxy eras need a ticker")
		}
		if era.Until.IsZero() {
			continue
		}
		if !last.IsZero() && !era.Until.After(last) {
			return fmt.Errorf("proxy era %s must end after %s", era.Ticker, last.Format(models.DateLayout))
		}
		last = era.Until
	}
	return nil
}

// DefaultParams returns the parameters used when a request omits them.
// The end date is the UTC calendar day of now.
func (b BacktestConfig) DefaultParams(now time.Time) Params {
	return Params{
		Start:    b.DefaultStart,
		End:      models.TruncateDay(now.UTC()),
		MAPeriod: b.DefaultMAPeriod,
		Leverage: b.DefaultLeverage,
	}
}
