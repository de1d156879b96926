package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"

	"github.com/yourusername/lrs-backtest/internal/datasource"
	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/models"
)

// Leverage modes reported on a run
const (
	LeverageNative    = "native"
	LeverageSynthetic = "synthetic"
)

// RunResult is the full outcome of one backtest, trimmed to the requested
// range and rebased to the configured base value
type RunResult struct {
	Params           Params
	FetchStart       time.Time
	LeverageMode     string
	Dates            []time.Time
	Signals          []Signal
	Positions        []Position
	NAV              NAVSeries
	Stock            NAVSeries
	Stock1x          NAVSeries
	Defensive        NAVSeries
	MA               NAVSeries // NaN before the window fills
	Benchmark        NAVSeries
	Zones            []SignalZone
	Metrics          Metrics
	BenchmarkMetrics Metrics
	DataInfo         map[string]string
}

// Engine runs backtests against a market data provider
type Engine struct {
	provider datasource.Provider
	cfg      BacktestConfig
	logger   *logger.BacktestLogger
}

// NewEngine creates a new backtest engine
func NewEngine(provider datasource.Provider, cfg BacktestConfig, log *logrus.Logger) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("market data provider is required")
	}
	if log == nil {
		log = logrus.New()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		logger:   logger.NewBacktestLogger(log),
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() BacktestConfig {
	return e.cfg
}

// Run fetches the four instruments and computes the strategy over [Start, End]
func (e *Engine) Run(ctx context.Context, params Params) (*RunResult, error) {
	began := time.Now()
	result, err := e.run(ctx, params.Normalize())
	duration := time.Since(began)

	if err != nil {
		metrics.RecordBacktestRun("error", duration.Seconds())
		e.logger.LogRunFailed(err, duration)
		return nil, err
	}

	metrics.RecordBacktestRun("success", duration.Seconds())
	e.logger.LogRunCompleted(len(result.Dates), len(result.Zones), result.Metrics.FinalNAV, result.Metrics.CAGR, duration)
	return result, nil
}

// Prefetch loads the run's fetch window into the provider chain without computing
func (e *Engine) Prefetch(ctx context.Context, params Params) error {
	params = params.Normalize()
	if err := params.Validate(e.cfg.Limits); err != nil {
		return err
	}
	native := UsesNativeLeverage(params.Leverage, e.cfg.Instruments.NativeLeverage)
	_, err := e.fetchAll(ctx, native, params.FetchStart(e.cfg.WarmupEnabled), params.End)
	return err
}

func (e *Engine) run(ctx context.Context, params Params) (*RunResult, error) {
	if err := params.Validate(e.cfg.Limits); err != nil {
		return nil, err
	}

	fetchStart := params.FetchStart(e.cfg.WarmupEnabled)
	e.logger.LogRunStarted(params.Start, params.End, params.MAPeriod, params.Leverage, fetchStart)

	inst := e.cfg.Instruments
	native := UsesNativeLeverage(params.Leverage, inst.NativeLeverage)
	fetched, err := e.fetchAll(ctx, native, fetchStart, params.End)
	if err != nil {
		return nil, err
	}

	dataInfo := make(map[string]string, len(fetched))
	for _, s := range fetched {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		dataInfo[s.Ticker] = s.Span()
	}

	roles := []stitchedRole{
		newStitchedRole(inst.Underlying, inst.UnderlyingEras, fetched),
		newStitchedRole(inst.Benchmark, nil, fetched),
		newStitchedRole(inst.Defensive, inst.DefensiveEras, fetched),
	}
	var leveraged *stitchedRole
	if native {
		// synthetic leverage stands in until the instrument lists
		role := newStitchedRole(inst.Leveraged, []ProxyEra{{Ticker: CashTicker}}, fetched)
		leveraged = &role
		roles = append(roles, role)
	}

	dates := tradingCalendar(roles...)
	legs := legReturns{
		underlying: roles[0].returns(dates),
		benchmark:  roles[1].returns(dates),
		defensive:  roles[2].returns(dates),
	}
	if leveraged != nil {
		legs.native = leveraged.primaryReturns(dates)
	}

	result, err := e.compute(params, fetchStart, dates, legs, dataInfo)
	if err != nil {
		return nil, err
	}
	if first := result.Dates[0]; first.Sub(params.Start) > lateStartTolerance {
		e.logger.LogLateStart(params.Start, first)
	}
	return result, nil
}

// lateStartTolerance covers the holidays and weekends a range may open on
const lateStartTolerance = 7 * 24 * time.Hour

// fetchAll retrieves every instrument concurrently; the first failure cancels
// the rest. A leveraged or proxied ticker with no data for the window comes
// back empty so the role falls back to its proxies.
func (e *Engine) fetchAll(ctx context.Context, native bool, start, end time.Time) (map[string]models.Series, error) {
	inst := e.cfg.Instruments
	tickers := inst.FetchTickers(native)
	series := make([]models.Series, len(tickers))

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, ticker := range tickers {
		p.Go(func(ctx context.Context) error {
			bars, err := e.provider.FetchDaily(ctx, ticker, start, end)
			if err != nil && errors.Is(err, datasource.ErrNotFound) && inst.stitched(ticker) {
				bars, err = []models.PriceBar{}, nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %w", ticker, err)
			}
			series[i] = models.Series{Ticker: ticker, Bars: bars}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	fetched := make(map[string]models.Series, len(series))
	for _, s := range series {
		fetched[s.Ticker] = s
	}
	return fetched, nil
}

// legReturns holds daily returns on the trading calendar. native is nil
// unless the run uses the leveraged instrument itself.
type legReturns struct {
	underlying []float64
	native     []float64
	benchmark  []float64
	defensive  []float64
}

// compute runs the pure part of a backtest over the trading calendar
func (e *Engine) compute(params Params, fetchStart time.Time, dates []time.Time, legs legReturns, dataInfo map[string]string) (*RunResult, error) {
	lo, hi := windowBounds(dates, params.Start, params.End)
	if lo >= hi {
		return nil, &models.EmptyRangeError{Start: params.Start, End: params.End}
	}
	if params.MAPeriod > len(dates) {
		return nil, &models.InvalidParameterError{
			Param:  "ma_period",
			Reason: fmt.Sprintf("%d exceeds the %d aligned trading days available", params.MAPeriod, len(dates)),
		}
	}

	inst := e.cfg.Instruments
	leveragedReturns := LeveragedReturns(legs.native, legs.underlying, params.Leverage, inst.NativeLeverage)

	mode := LeverageSynthetic
	if UsesNativeLeverage(params.Leverage, inst.NativeLeverage) {
		mode = LeverageNative
	}

	// the signal follows the leveraged path the strategy would actually hold
	stockPath := Compound(leveragedReturns, 1)
	signals := ComputeSignal(stockPath, params.MAPeriod)
	ma := MovingAverage(stockPath, params.MAPeriod)

	sim, err := Simulate(signals, leveragedReturns, legs.defensive, 1)
	if err != nil {
		return nil, fmt.Errorf("simulate: %w", err)
	}

	window := dates[lo:hi]
	base := e.cfg.BaseValue
	stock := NewNAVSeries(window, stockPath[lo:hi])
	stockScale := 1.0
	if stock[0].Value > 0 {
		stockScale = base / stock[0].Value
	}

	result := &RunResult{
		Params:       params,
		FetchStart:   fetchStart,
		LeverageMode: mode,
		Dates:        window,
		Signals:      signals[lo:hi],
		Positions:    sim.Positions[lo:hi],
		NAV:          NewNAVSeries(window, sim.NAV[lo:hi]).Rebase(base),
		Stock:        stock.Scale(stockScale),
		Stock1x:      NewNAVSeries(window, Compound(legs.underlying, 1)[lo:hi]).Rebase(base),
		Defensive:    NewNAVSeries(window, Compound(legs.defensive, 1)[lo:hi]).Rebase(base),
		MA:           NewNAVSeries(window, ma[lo:hi]).Scale(stockScale),
		Benchmark:    NewNAVSeries(window, Compound(legs.benchmark, 1)[lo:hi]).Rebase(base),
		Zones:        BuildZones(window, sim.Positions[lo:hi]),
		DataInfo:     dataInfo,
	}
	result.Metrics = ComputeMetrics(result.NAV, result.Benchmark, e.cfg.Metrics)
	result.BenchmarkMetrics = ComputeMetrics(result.Benchmark, result.Benchmark, e.cfg.Metrics)
	return result, nil
}
