package backtest

import (
	"math"
	"strconv"
	"time"
)

// Point is a dated value on a time series
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// NAVSeries is a chronological wealth index
type NAVSeries []Point

// NewNAVSeries zips dates and values; the shorter input bounds the result
func NewNAVSeries(dates []time.Time, values []float64) NAVSeries {
	n := len(dates)
	if len(values) < n {
		n = len(values)
	}
	series := make(NAVSeries, n)
	for i := 0; i < n; i++ {
		series[i] = Point{Date: dates[i], Value: values[i]}
	}
	return series
}

// Values returns the raw values
func (s NAVSeries) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Returns calculates day-over-day returns, one per point after the first
func (s NAVSeries) Returns() []float64 {
	if len(s) < 2 {
		return []float64{}
	}
	returns := make([]float64, 0, len(s)-1)
	for i := 1; i < len(s); i++ {
		prev := s[i-1].Value
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, s[i].Value/prev-1)
	}
	return returns
}

// Rebase rescales the series so its first value equals base
func (s NAVSeries) Rebase(base float64) NAVSeries {
	out := make(NAVSeries, len(s))
	if len(s) == 0 || s[0].Value == 0 {
		copy(out, s)
		return out
	}
	scale := base / s[0].Value
	for i, p := range s {
		out[i] = Point{Date: p.Date, Value: p.Value * scale}
	}
	return out
}

// Scale multiplies every value by factor
func (s NAVSeries) Scale(factor float64) NAVSeries {
	out := make(NAVSeries, len(s))
	for i, p := range s {
		out[i] = Point{Date: p.Date, Value: p.Value * factor}
	}
	return out
}

// Drawdowns returns nav/runningPeak - 1 for each point, always <= 0
func (s NAVSeries) Drawdowns() NAVSeries {
	out := make(NAVSeries, len(s))
	peak := math.Inf(-1)
	for i, p := range s {
		if p.Value > peak {
			peak = p.Value
		}
		dd := 0.0
		if peak > 0 {
			dd = p.Value/peak - 1
		}
		out[i] = Point{Date: p.Date, Value: dd}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
