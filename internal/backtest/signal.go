package backtest

import "math"

// Signal is the per-day trend reading taken at the close
type Signal int

const (
	// RiskOff means price is at or below its moving average
	RiskOff Signal = iota
	// RiskOn means price closed strictly above its moving average
	RiskOn
)

func (s Signal) String() string {
	if s == RiskOn {
		return "RISK_ON"
	}
	return "RISK_OFF"
}

// MovingAverage returns the trailing simple moving average of values.
// Entries before the window fills are NaN.
func MovingAverage(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// ComputeSignal compares each value with its own maPeriod-day SMA.
// Days without a full window read RiskOff, and a close equal to the SMA is
// RiskOff as well.
func ComputeSignal(values []float64, maPeriod int) []Signal {
	signals := make([]Signal, len(values))
	ma := MovingAverage(values, maPeriod)
	for i, v := range values {
		if math.IsNaN(ma[i]) {
			signals[i] = RiskOff
			continue
		}
		if v > ma[i] {
			signals[i] = RiskOn
		}
	}
	return signals
}
