package backtest

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lrs-backtest/internal/datasource"
	"github.com/yourusername/lrs-backtest/internal/models"
)

type fakeProvider struct {
	mu    sync.Mutex
	bars  map[string][]models.PriceBar
	fail  map[string]error
	calls map[string]int
}

func (f *fakeProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	f.mu.Lock()
	f.calls[ticker]++
	f.mu.Unlock()

	if err := f.fail[ticker]; err != nil {
		return nil, err
	}
	out := make([]models.PriceBar, 0)
	for _, bar := range f.bars[ticker] {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out, nil
}

func (f *fakeProvider) Name() string { return "fake" }

// market holds the fixture's underlying daily returns so tests can rebuild paths
type market struct {
	dates      []time.Time
	underlying []float64
}

func newMarket(n int) market {
	m := market{
		dates:      tradingDays(time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), n),
		underlying: make([]float64, n),
	}
	for i := 1; i < n; i++ {
		m.underlying[i] = 0.01*math.Sin(float64(i)*0.7) + 0.0005
	}
	return m
}

func barsFrom(dates []time.Time, returns []float64, first float64) []models.PriceBar {
	closes := Compound(returns, first)
	bars := make([]models.PriceBar, len(dates))
	for i, d := range dates {
		bars[i] = models.PriceBar{Date: d, Close: closes[i]}
	}
	return bars
}

func (m market) provider() *fakeProvider {
	n := len(m.dates)
	gold := make([]float64, n)
	bench := make([]float64, n)
	for i := 1; i < n; i++ {
		gold[i] = 0.002 * math.Cos(float64(i)*0.3)
		bench[i] = 0.5 * m.underlying[i]
	}
	return &fakeProvider{
		bars: map[string][]models.PriceBar{
			"TQQQ":  barsFrom(m.dates, SyntheticLeveragedReturns(m.underlying, 3), 50),
			"QQQ":   barsFrom(m.dates, m.underlying, 300),
			"^GSPC": barsFrom(m.dates, bench, 3000),
			"IAU":   barsFrom(m.dates, gold, 15),
		},
		fail:  map[string]error{},
		calls: map[string]int{},
	}
}

func newTestEngine(t *testing.T, p *fakeProvider) *Engine {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	engine, err := NewEngine(p, DefaultBacktestConfig(), log)
	require.NoError(t, err)
	return engine
}

func TestEngineRunWarmupTrim(t *testing.T) {
	m := newMarket(300)
	p := m.provider()
	engine := newTestEngine(t, p)

	params := Params{Start: m.dates[150], End: m.dates[249], MAPeriod: 20, Leverage: 3}
	result, err := engine.Run(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, LeverageNative, result.LeverageMode)
	assert.Equal(t, params.Start.AddDate(0, 0, -WarmupDays(20)), result.FetchStart)
	require.Len(t, result.Dates, 100)
	assert.Equal(t, m.dates[150], result.Dates[0])
	assert.Equal(t, m.dates[249], result.Dates[99])

	for _, s := range []NAVSeries{result.NAV, result.Stock, result.Stock1x, result.Defensive, result.Benchmark} {
		require.Len(t, s, 100)
		assert.InDelta(t, 1.0, s[0].Value, 1e-12)
	}
	assert.False(t, math.IsNaN(result.MA[0].Value), "warm-up makes the average live on the first day")
	assert.Equal(t, 100, result.Metrics.TradingDays)
	assert.Equal(t, m.dates[150], result.Metrics.StartDate)

	require.NotEmpty(t, result.Zones)
	assert.Equal(t, result.Dates[0], result.Zones[0].Start)
	assert.Equal(t, result.Dates[99], result.Zones[len(result.Zones)-1].End)

	for _, ticker := range []string{"TQQQ", "QQQ", "^GSPC", "IAU"} {
		assert.Equal(t, 1, p.calls[ticker])
		assert.Contains(t, result.DataInfo, ticker)
	}
}

func TestEngineRunNativeLeverageFollowsInstrument(t *testing.T) {
	m := newMarket(120)
	p := m.provider()
	engine := newTestEngine(t, p)

	result, err := engine.Run(context.Background(), Params{Start: m.dates[60], End: m.dates[119], MAPeriod: 10, Leverage: 3})
	require.NoError(t, err)

	tqqq := p.bars["TQQQ"]
	for i, point := range result.Stock {
		assert.InDelta(t, tqqq[60+i].Close/tqqq[60].Close, point.Value, 1e-9)
	}
}

func TestEngineRunSyntheticLeverage(t *testing.T) {
	m := newMarket(120)
	engine := newTestEngine(t, m.provider())

	result, err := engine.Run(context.Background(), Params{Start: m.dates[60], End: m.dates[119], MAPeriod: 10, Leverage: 2})
	require.NoError(t, err)

	assert.Equal(t, LeverageSynthetic, result.LeverageMode)
	for i := 1; i < len(result.Stock); i++ {
		got := result.Stock[i].Value/result.Stock[i-1].Value - 1
		assert.InDelta(t, 2*m.underlying[60+i], got, 1e-9)
	}

	for i := 1; i < len(result.NAV); i++ {
		held := result.Positions[i]
		want := result.Defensive[i].Value/result.Defensive[i-1].Value - 1
		if held == Leveraged {
			want = result.Stock[i].Value/result.Stock[i-1].Value - 1
		}
		assert.InDelta(t, want, result.NAV[i].Value/result.NAV[i-1].Value-1, 1e-9, "day %d", i)
	}
}

func TestEngineRunAlignsOnCommonDates(t *testing.T) {
	m := newMarket(120)
	p := m.provider()
	gap := m.dates[100]
	gold := p.bars["IAU"]
	p.bars["IAU"] = append(append([]models.PriceBar{}, gold[:100]...), gold[101:]...)
	engine := newTestEngine(t, p)

	result, err := engine.Run(context.Background(), Params{Start: m.dates[80], End: m.dates[119], MAPeriod: 10, Leverage: 3})
	require.NoError(t, err)

	assert.Len(t, result.Dates, 39)
	assert.NotContains(t, result.Dates, gap)
}

func TestEngineRunBeforeLeveragedListing(t *testing.T) {
	m := newMarket(600)
	p := m.provider()
	p.bars["TQQQ"] = barsFrom(m.dates[400:], SyntheticLeveragedReturns(m.underlying[400:], 2.5), 50)
	engine := newTestEngine(t, p)

	t.Run("synthetic keeps the requested start", func(t *testing.T) {
		result, err := engine.Run(context.Background(), Params{Start: m.dates[250], End: m.dates[599], MAPeriod: 50, Leverage: 2})
		require.NoError(t, err)

		require.Len(t, result.Dates, 350)
		assert.Equal(t, m.dates[250], result.Dates[0])
		assert.False(t, math.IsNaN(result.MA[0].Value))
		assert.NotContains(t, result.DataInfo, "TQQQ")
	})

	t.Run("native fills in before listing", func(t *testing.T) {
		result, err := engine.Run(context.Background(), Params{Start: m.dates[250], End: m.dates[599], MAPeriod: 50, Leverage: 3})
		require.NoError(t, err)

		require.Len(t, result.Dates, 350)
		assert.Equal(t, LeverageNative, result.LeverageMode)
		dayReturn := func(day int) float64 {
			i := day - 250
			return result.Stock[i].Value/result.Stock[i-1].Value - 1
		}
		assert.InDelta(t, 3*m.underlying[300], dayReturn(300), 1e-9)
		assert.InDelta(t, 3*m.underlying[400], dayReturn(400), 1e-9, "listing day has no prior close")
		assert.InDelta(t, 2.5*m.underlying[401], dayReturn(401), 1e-9)
		assert.InDelta(t, 2.5*m.underlying[550], dayReturn(550), 1e-9)
	})

	t.Run("range wholly before listing", func(t *testing.T) {
		p.fail["TQQQ"] = &models.UpstreamUnavailableError{Source: "fake", Ticker: "TQQQ", Err: datasource.ErrNotFound}
		defer delete(p.fail, "TQQQ")

		result, err := engine.Run(context.Background(), Params{Start: m.dates[100], End: m.dates[200], MAPeriod: 20, Leverage: 3})
		require.NoError(t, err)
		assert.Len(t, result.Dates, 101)
	})
}

func TestEngineRunStitchesDefensiveProxy(t *testing.T) {
	m := newMarket(300)
	p := m.provider()
	gold := p.bars["IAU"]
	futures := make([]models.PriceBar, len(gold))
	for i, bar := range gold {
		futures[i] = models.PriceBar{Date: bar.Date, Close: bar.Close * (1 + 0.001*float64(i))}
	}
	p.bars["GC=F"] = futures
	p.bars["IAU"] = gold[150:]
	engine := newTestEngine(t, p)

	result, err := engine.Run(context.Background(), Params{Start: m.dates[100], End: m.dates[299], MAPeriod: 20, Leverage: 3})
	require.NoError(t, err)

	require.Len(t, result.Dates, 200)
	dayReturn := func(day int) float64 {
		i := day - 100
		return result.Defensive[i].Value/result.Defensive[i-1].Value - 1
	}
	assert.InDelta(t, futures[120].Close/futures[119].Close-1, dayReturn(120), 1e-9)
	assert.InDelta(t, futures[150].Close/futures[149].Close-1, dayReturn(150), 1e-9)
	assert.InDelta(t, gold[200].Close/gold[199].Close-1, dayReturn(200), 1e-9)
}

func TestEngineRunErrors(t *testing.T) {
	m := newMarket(120)
	saturday := time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		setup  func(p *fakeProvider)
		params Params
		target error
	}{
		{
			name:   "start after end",
			params: Params{Start: m.dates[50], End: m.dates[40], MAPeriod: 10, Leverage: 3},
			target: models.ErrInvalidParameter,
		},
		{
			name:   "ma period above limit",
			params: Params{Start: m.dates[50], End: m.dates[60], MAPeriod: 501, Leverage: 3},
			target: models.ErrInvalidParameter,
		},
		{
			name:   "ma period longer than data",
			params: Params{Start: m.dates[50], End: m.dates[60], MAPeriod: 400, Leverage: 3},
			target: models.ErrInvalidParameter,
		},
		{
			name:   "non-positive leverage",
			params: Params{Start: m.dates[50], End: m.dates[60], MAPeriod: 10, Leverage: 0},
			target: models.ErrInvalidParameter,
		},
		{
			name:   "weekend only range",
			params: Params{Start: saturday, End: saturday, MAPeriod: 10, Leverage: 3},
			target: models.ErrEmptyRange,
		},
		{
			name:   "range after the data",
			params: Params{Start: m.dates[119].AddDate(0, 1, 0), End: m.dates[119].AddDate(0, 2, 0), MAPeriod: 10, Leverage: 3},
			target: models.ErrEmptyRange,
		},
		{
			name: "non-positive close",
			setup: func(p *fakeProvider) {
				p.bars["QQQ"][70].Close = 0
			},
			params: Params{Start: m.dates[60], End: m.dates[80], MAPeriod: 10, Leverage: 3},
			target: models.ErrDataIntegrity,
		},
		{
			name: "duplicate date",
			setup: func(p *fakeProvider) {
				p.bars["IAU"][71].Date = p.bars["IAU"][70].Date
			},
			params: Params{Start: m.dates[60], End: m.dates[80], MAPeriod: 10, Leverage: 3},
			target: models.ErrDataIntegrity,
		},
		{
			name: "upstream failure",
			setup: func(p *fakeProvider) {
				p.fail["^GSPC"] = &models.UpstreamUnavailableError{Source: "fake", Ticker: "^GSPC", Err: errors.New("boom")}
			},
			params: Params{Start: m.dates[60], End: m.dates[80], MAPeriod: 10, Leverage: 3},
			target: models.ErrUpstreamUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := m.provider()
			if tt.setup != nil {
				tt.setup(p)
			}
			engine := newTestEngine(t, p)

			result, err := engine.Run(context.Background(), tt.params)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestEngineRunSingleDay(t *testing.T) {
	m := newMarket(120)
	engine := newTestEngine(t, m.provider())

	result, err := engine.Run(context.Background(), Params{Start: m.dates[90], End: m.dates[90], MAPeriod: 10, Leverage: 3})
	require.NoError(t, err)

	require.Len(t, result.NAV, 1)
	assert.InDelta(t, 1.0, result.NAV[0].Value, 1e-12)
	assert.True(t, math.IsNaN(result.Metrics.CAGR))
	require.Len(t, result.Zones, 1)
}

func TestEngineRunCancelledContext(t *testing.T) {
	m := newMarket(60)
	p := m.provider()
	p.fail["TQQQ"] = context.Canceled
	engine := newTestEngine(t, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Run(ctx, Params{Start: m.dates[30], End: m.dates[59], MAPeriod: 5, Leverage: 3})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEnginePrefetch(t *testing.T) {
	m := newMarket(60)
	p := m.provider()
	engine := newTestEngine(t, p)

	require.NoError(t, engine.Prefetch(context.Background(), Params{Start: m.dates[10], End: m.dates[50], MAPeriod: 5, Leverage: 3}))
	assert.Len(t, p.calls, len(engine.Config().Instruments.FetchTickers(true)))
	assert.Equal(t, 1, p.calls["TQQQ"])

	require.NoError(t, engine.Prefetch(context.Background(), Params{Start: m.dates[10], End: m.dates[50], MAPeriod: 5, Leverage: 2}))
	assert.Equal(t, 1, p.calls["TQQQ"], "synthetic runs never read the leveraged instrument")

	err := engine.Prefetch(context.Background(), Params{Start: m.dates[10], End: m.dates[50], MAPeriod: 0, Leverage: 3})
	assert.ErrorIs(t, err, models.ErrInvalidParameter)
}

func TestNewEngineValidation(t *testing.T) {
	_, err := NewEngine(nil, DefaultBacktestConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultBacktestConfig()
	cfg.Instruments.Defensive = ""
	_, err = NewEngine(&fakeProvider{}, cfg, nil)
	assert.Error(t, err)

	engine, err := NewEngine(&fakeProvider{}, DefaultBacktestConfig(), nil)
	require.NoError(t, err)
	assert.Equal(t, 200, engine.Config().DefaultMAPeriod)
}

func TestParamsHelpers(t *testing.T) {
	assert.Equal(t, 330, WarmupDays(200))
	assert.Equal(t, 31, WarmupDays(1))

	p := Params{
		Start:    time.Date(2021, 6, 10, 15, 30, 0, 0, time.FixedZone("x", 3600)),
		End:      time.Date(2021, 6, 20, 1, 0, 0, 0, time.UTC),
		MAPeriod: 200,
	}.Normalize()
	assert.Equal(t, time.Date(2021, 6, 10, 0, 0, 0, 0, time.UTC), p.Start)
	assert.Equal(t, p.Start, p.FetchStart(false))
	assert.Equal(t, time.Date(2020, 7, 15, 0, 0, 0, 0, time.UTC), p.FetchStart(true))

	cfg := DefaultBacktestConfig()
	defaults := cfg.DefaultParams(time.Date(2024, 5, 1, 23, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), defaults.End)
	assert.Equal(t, 200, defaults.MAPeriod)
	assert.Equal(t, 3.0, defaults.Leverage)
}
