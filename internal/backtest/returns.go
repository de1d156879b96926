package backtest

import "math"

// nativeLeverageTolerance decides when a requested leverage equals the
// instrument's own multiple
const nativeLeverageTolerance = 1e-9

// DailyReturns converts closes into simple daily returns. The first day has
// no prior close and returns 0.
func DailyReturns(closes []float64) []float64 {
	returns := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			continue
		}
		returns[i] = closes[i]/prev - 1
	}
	return returns
}

// SyntheticLeveragedReturns applies leverage to the 1x returns with a daily
// reset. A day can lose at most everything.
func SyntheticLeveragedReturns(underlying []float64, leverage float64) []float64 {
	out := make([]float64, len(underlying))
	for i, r := range underlying {
		out[i] = math.Max(leverage*r, -1)
	}
	return out
}

// UsesNativeLeverage reports whether the requested leverage matches the
// leveraged instrument's nominal multiple
func UsesNativeLeverage(leverage, nativeLeverage float64) bool {
	return nativeLeverage > 0 && math.Abs(leverage-nativeLeverage) < nativeLeverageTolerance
}

// LeveragedReturns builds the leveraged leg. At the native multiple, the
// instrument's own return is used on every day it has one (not NaN); other
// days, and every day at any other leverage, use the synthetic daily-reset
// path built from the 1x returns.
func LeveragedReturns(native, underlyingReturns []float64, leverage, nativeLeverage float64) []float64 {
	out := SyntheticLeveragedReturns(underlyingReturns, leverage)
	if !UsesNativeLeverage(leverage, nativeLeverage) || len(native) != len(out) {
		return out
	}
	for i, r := range native {
		if !math.IsNaN(r) {
			out[i] = r
		}
	}
	return out
}

// Compound turns a return stream into a wealth path starting at base.
// The return on index 0 is ignored.
func Compound(returns []float64, base float64) []float64 {
	nav := make([]float64, len(returns))
	if len(returns) == 0 {
		return nav
	}
	nav[0] = base
	for i := 1; i < len(returns); i++ {
		nav[i] = nav[i-1] * (1 + returns[i])
	}
	return nav
}
