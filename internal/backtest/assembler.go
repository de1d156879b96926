package backtest

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// NullFloat serialises NaN and ±Inf as JSON null
type NullFloat float64

// MarshalJSON implements json.Marshaler
func (f NullFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

// PointDTO is one {date, value} sample on the wire
type PointDTO struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ZoneDTO is one signal zone on the wire; both ends are inclusive
type ZoneDTO struct {
	Start   string `json:"start"`
	End     string `json:"end"`
	IsStock bool   `json:"is_stock"`
}

// ParametersDTO echoes the effective request parameters
type ParametersDTO struct {
	Start        string  `json:"start"`
	End          string  `json:"end"`
	MAPeriod     int     `json:"ma_period"`
	Leverage     float64 `json:"leverage"`
	LeverageMode string  `json:"leverage_mode"`
}

// MetricsDTO carries the scalar statistics; undefined values are null
type MetricsDTO struct {
	FinalNAV     NullFloat `json:"final_nav"`
	CAGR         NullFloat `json:"cagr"`
	Sharpe       NullFloat `json:"sharpe"`
	MaxDrawdown  NullFloat `json:"max_drawdown"`
	Volatility   NullFloat `json:"volatility"`
	Sortino      NullFloat `json:"sortino"`
	WinRate      NullFloat `json:"win_rate"`
	Calmar       NullFloat `json:"calmar"`
	RecoveryDays *int      `json:"recovery_days"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	TradingDays  int       `json:"trading_days"`
}

// Response is the JSON body of a successful backtest
type Response struct {
	Success             bool                 `json:"success"`
	Parameters          ParametersDTO        `json:"parameters"`
	Metrics             MetricsDTO           `json:"metrics"`
	BenchmarkMetrics    MetricsDTO           `json:"benchmark_metrics"`
	AnnualReturns       map[string]NullFloat `json:"annual_returns"`
	SP500AnnualReturns  map[string]NullFloat `json:"sp500_annual_returns"`
	NAVSeries           []PointDTO           `json:"nav_series"`
	StockSeries         []PointDTO           `json:"stock_series"`
	Stock1xSeries       []PointDTO           `json:"stock_1x_series"`
	GoldSeries          []PointDTO           `json:"gold_series"`
	MASeries            []PointDTO           `json:"ma_series"`
	SP500Series         []PointDTO           `json:"sp500_series"`
	SignalZones         []ZoneDTO            `json:"signal_zones"`
	DrawdownSeries      []PointDTO           `json:"drawdown_series"`
	RollingSharpeSeries []PointDTO           `json:"rolling_sharpe_series"`
	DataInfo            map[string]string    `json:"data_info"`
}

// AssembleOptions controls presentation-only shaping
type AssembleOptions struct {
	// DownsampleThreshold keeps one point per ISO week for series longer
	// than this many points; 0 disables downsampling
	DownsampleThreshold int
}

// Assemble converts a run into the wire response
func Assemble(run *RunResult, opts AssembleOptions) *Response {
	m := run.Metrics
	series := func(s NAVSeries) []PointDTO {
		return toPoints(Downsample(s, opts.DownsampleThreshold))
	}

	dataInfo := run.DataInfo
	if dataInfo == nil {
		dataInfo = map[string]string{}
	}

	return &Response{
		Success: true,
		Parameters: ParametersDTO{
			Start:        run.Params.Start.Format(models.DateLayout),
			End:          run.Params.End.Format(models.DateLayout),
			MAPeriod:     run.Params.MAPeriod,
			Leverage:     run.Params.Leverage,
			LeverageMode: run.LeverageMode,
		},
		Metrics:             toMetrics(m),
		BenchmarkMetrics:    toMetrics(run.BenchmarkMetrics),
		AnnualReturns:       yearKeys(m.AnnualReturns),
		SP500AnnualReturns:  yearKeys(m.BenchmarkAnnualReturns),
		NAVSeries:           series(run.NAV),
		StockSeries:         series(run.Stock),
		Stock1xSeries:       series(run.Stock1x),
		GoldSeries:          series(run.Defensive),
		MASeries:            series(run.MA),
		SP500Series:         series(run.Benchmark),
		SignalZones:         toZones(run.Zones),
		DrawdownSeries:      series(m.Drawdown.Scale(100)),
		RollingSharpeSeries: series(m.RollingSharpe),
		DataInfo:            dataInfo,
	}
}

func toMetrics(m Metrics) MetricsDTO {
	return MetricsDTO{
		FinalNAV:     NullFloat(m.FinalNAV),
		CAGR:         NullFloat(m.CAGR),
		Sharpe:       NullFloat(m.Sharpe),
		MaxDrawdown:  NullFloat(m.MaxDrawdown),
		Volatility:   NullFloat(m.Volatility),
		Sortino:      NullFloat(m.Sortino),
		WinRate:      NullFloat(m.WinRate),
		Calmar:       NullFloat(m.Calmar),
		RecoveryDays: m.RecoveryDays,
		StartDate:    formatDate(m.StartDate),
		EndDate:      formatDate(m.EndDate),
		TradingDays:  m.TradingDays,
	}
}

// Downsample keeps the last point of each ISO week when s is longer than
// threshold. A threshold of 0 returns s unchanged.
func Downsample(s NAVSeries, threshold int) NAVSeries {
	if threshold <= 0 || len(s) <= threshold {
		return s
	}

	out := make(NAVSeries, 0, len(s)/4+1)
	for i, p := range s {
		if i+1 < len(s) && sameISOWeek(p.Date, s[i+1].Date) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}

// toPoints formats dates and drops undefined values
func toPoints(s NAVSeries) []PointDTO {
	out := make([]PointDTO, 0, len(s))
	for _, p := range s {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		out = append(out, PointDTO{Date: p.Date.Format(models.DateLayout), Value: p.Value})
	}
	return out
}

func toZones(zones []SignalZone) []ZoneDTO {
	out := make([]ZoneDTO, len(zones))
	for i, z := range zones {
		out[i] = ZoneDTO{
			Start:   z.Start.Format(models.DateLayout),
			End:     z.End.Format(models.DateLayout),
			IsStock: z.IsStock,
		}
	}
	return out
}

func yearKeys(annual map[int]float64) map[string]NullFloat {
	out := make(map[string]NullFloat, len(annual))
	for year, v := range annual {
		out[strconv.Itoa(year)] = NullFloat(v)
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(models.DateLayout)
}

// SortedYears returns the keys of an annual-returns map in ascending order
func SortedYears(annual map[int]float64) []int {
	years := make([]int, 0, len(annual))
	for year := range annual {
		years = append(years, year)
	}
	sort.Ints(years)
	return years
}
