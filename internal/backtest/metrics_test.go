package backtest

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func navFrom(values ...float64) NAVSeries {
	dates := tradingDays(time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC), len(values))
	return NewNAVSeries(dates, values)
}

func TestComputeMetricsConstantGrowth(t *testing.T) {
	const n, c = 253, 0.001
	values := make([]float64, n)
	values[0] = 1
	for i := 1; i < n; i++ {
		values[i] = values[i-1] * (1 + c)
	}
	nav := navFrom(values...)

	m := ComputeMetrics(nav, nav, DefaultMetricsConfig())

	assert.InDelta(t, math.Pow(1+c, 252)-1, m.CAGR, 1e-9)
	assert.InDelta(t, values[n-1], m.FinalNAV, 1e-12)
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 1.0, m.WinRate)
	assert.True(t, math.IsNaN(m.Sharpe), "zero volatility has no Sharpe")
	assert.True(t, math.IsNaN(m.Sortino), "no downside days has no Sortino")
	assert.True(t, math.IsNaN(m.Calmar), "no drawdown has no Calmar")
	require.NotNil(t, m.RecoveryDays)
	assert.Equal(t, 0, *m.RecoveryDays)
	assert.Equal(t, n, m.TradingDays)
	assert.Equal(t, nav[0].Date, m.StartDate)
	assert.Equal(t, nav[n-1].Date, m.EndDate)
}

func TestComputeMetricsKnownValues(t *testing.T) {
	nav := navFrom(100, 110, 99, 108.9)
	cfg := DefaultMetricsConfig()

	m := ComputeMetrics(nav, nav, cfg)

	mean := (0.10 - 0.10 + 0.10) / 3
	variance := (2*math.Pow(0.10-mean, 2) + math.Pow(-0.10-mean, 2)) / 2
	std := math.Sqrt(variance)

	assert.InDelta(t, std*math.Sqrt(252), m.Volatility, 1e-9)
	assert.InDelta(t, mean/std*math.Sqrt(252), m.Sharpe, 1e-9)
	downside := math.Sqrt(0.01 / 3)
	assert.InDelta(t, mean/downside*math.Sqrt(252), m.Sortino, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.WinRate, 1e-12)
	assert.InDelta(t, -0.10, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, math.Pow(1.089, 252.0/3)-1, m.CAGR, 1e-6)
	assert.InDelta(t, m.CAGR/0.10, m.Calmar, 1e-6)
}

func TestMaxDrawdownMatchesBruteForce(t *testing.T) {
	values := make([]float64, 300)
	v := 100.0
	for i := range values {
		v *= 1 + 0.03*math.Sin(float64(i)*0.37) + 0.01*math.Cos(float64(i)*1.3)
		values[i] = v
	}
	nav := navFrom(values...)

	want := 0.0
	for i := range values {
		peak := values[0]
		for j := 0; j <= i; j++ {
			peak = math.Max(peak, values[j])
		}
		want = math.Min(want, values[i]/peak-1)
	}

	m := ComputeMetrics(nav, nav, DefaultMetricsConfig())
	assert.InDelta(t, want, m.MaxDrawdown, 1e-15)
	assert.Less(t, m.MaxDrawdown, 0.0)
	for _, p := range m.Drawdown {
		assert.LessOrEqual(t, p.Value, 0.0)
	}
}

func TestRecoveryDays(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   *int
	}{
		{name: "recovers to prior peak", values: []float64{1, 1.2, 0.9, 1.0, 1.2, 1.3}, want: intPtr(2)},
		{name: "never recovers", values: []float64{1, 0.5, 0.6}, want: nil},
		{name: "deepest trough counts", values: []float64{1, 0.95, 1.0, 0.7, 0.8, 0.9, 1.05}, want: intPtr(3)},
		{name: "no drawdown", values: []float64{1, 1, 1.1}, want: intPtr(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateRecoveryDays(navFrom(tt.values...))
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestAnnualReturnsAggregatesByCalendarYear(t *testing.T) {
	dates := tradingDays(time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC), 3*260)
	returns := make([]float64, len(dates))
	for i := range returns {
		returns[i] = 0.004 * math.Sin(float64(i)*0.21)
	}
	nav := NewNAVSeries(dates, Compound(returns, 1))

	want := map[int]float64{}
	for i := 1; i < len(dates); i++ {
		year := dates[i].Year()
		if _, ok := want[year]; !ok {
			want[year] = 1
		}
		want[year] *= 1 + returns[i]
	}

	annual := AnnualReturns(nav)
	require.Len(t, annual, len(want))
	for _, year := range []int{2019, 2020, 2021} {
		require.Contains(t, annual, year)
		assert.InDelta(t, (want[year]-1)*100, annual[year], 1e-9, "year %d", year)
	}
	assert.Equal(t, []int{2019, 2020, 2021}, SortedYears(annual)[:3])
}

func TestRollingSharpe(t *testing.T) {
	nav := navFrom(100, 101, 100.5, 102, 101, 103)
	cfg := MetricsConfig{TradingDaysPerYear: 252, RollingWindow: 3}

	rolling := RollingSharpe(nav, cfg)

	require.Len(t, rolling, 3)
	assert.Equal(t, nav[3].Date, rolling[0].Date)
	assert.Equal(t, nav[5].Date, rolling[2].Date)

	returns := nav.Returns()
	assert.InDelta(t, calculateSharpeRatio(returns[0:3], 0, 252), rolling[0].Value, 1e-12)
	assert.InDelta(t, calculateSharpeRatio(returns[2:5], 0, 252), rolling[2].Value, 1e-12)

	assert.Empty(t, RollingSharpe(navFrom(1, 1.1), cfg), "window larger than the series")
}

func TestComputeMetricsDegenerate(t *testing.T) {
	empty := ComputeMetrics(NAVSeries{}, NAVSeries{}, DefaultMetricsConfig())
	assert.True(t, math.IsNaN(empty.FinalNAV))
	assert.True(t, math.IsNaN(empty.CAGR))
	assert.Nil(t, empty.RecoveryDays)
	assert.Equal(t, 0, empty.TradingDays)

	single := ComputeMetrics(navFrom(1), navFrom(1), DefaultMetricsConfig())
	assert.Equal(t, 1.0, single.FinalNAV)
	assert.True(t, math.IsNaN(single.CAGR))
	assert.True(t, math.IsNaN(single.Volatility))
	assert.True(t, math.IsNaN(single.WinRate))
	assert.Equal(t, 0.0, single.MaxDrawdown)
	assert.Empty(t, single.AnnualReturns)
}

func intPtr(v int) *int {
	return &v
}
