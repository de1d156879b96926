package backtest

import (
	"fmt"
	"time"
)

// Position is the instrument held through a trading day
type Position int

const (
	// Defensive holds the hedge asset
	Defensive Position = iota
	// Leveraged holds the leveraged equity leg
	Leveraged
)

func (p Position) String() string {
	if p == Leveraged {
		return "LEVERAGED"
	}
	return "DEFENSIVE"
}

// SimulationResult is the day-by-day outcome of walking the signal forward
type SimulationResult struct {
	Positions []Position
	Returns   []float64
	NAV       []float64
}

// SignalZone is a maximal run of days with an unchanged position
type SignalZone struct {
	Start   time.Time
	End     time.Time
	IsStock bool
}

// PositionsFromSignals lags the signal by one day: the close of day t-1
// decides what is held on day t, and day 0 is always defensive.
func PositionsFromSignals(signals []Signal) []Position {
	positions := make([]Position, len(signals))
	for t := 1; t < len(signals); t++ {
		if signals[t-1] == RiskOn {
			positions[t] = Leveraged
		}
	}
	return positions
}

// Simulate compounds the held instrument's daily return into a NAV path
func Simulate(signals []Signal, leveragedReturns, defensiveReturns []float64, baseValue float64) (SimulationResult, error) {
	n := len(signals)
	if len(leveragedReturns) != n || len(defensiveReturns) != n {
		return SimulationResult{}, fmt.Errorf("series length mismatch: signals=%d leveraged=%d defensive=%d", n, len(leveragedReturns), len(defensiveReturns))
	}
	if baseValue <= 0 {
		return SimulationResult{}, fmt.Errorf("base value must be positive")
	}

	result := SimulationResult{
		Positions: PositionsFromSignals(signals),
		Returns:   make([]float64, n),
		NAV:       make([]float64, n),
	}
	if n == 0 {
		return result, nil
	}

	result.NAV[0] = baseValue
	for t := 1; t < n; t++ {
		r := defensiveReturns[t]
		if result.Positions[t] == Leveraged {
			r = leveragedReturns[t]
		}
		result.Returns[t] = r
		result.NAV[t] = result.NAV[t-1] * (1 + r)
	}
	return result, nil
}

// BuildZones run-length encodes positions into inclusive date ranges
func BuildZones(dates []time.Time, positions []Position) []SignalZone {
	if len(dates) == 0 || len(dates) != len(positions) {
		return []SignalZone{}
	}

	zones := make([]SignalZone, 0)
	runStart := 0
	for i := 1; i <= len(positions); i++ {
		if i < len(positions) && positions[i] == positions[runStart] {
			continue
		}
		zones = append(zones, SignalZone{
			Start:   dates[runStart],
			End:     dates[i-1],
			IsStock: positions[runStart] == Leveraged,
		})
		runStart = i
	}
	return zones
}
