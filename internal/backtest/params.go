package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// Params are the user-chosen inputs of one run
type Params struct {
	Start    time.Time
	End      time.Time
	MAPeriod int
	Leverage float64
}

// Validate checks the parameters against limits. The MA period is checked
// against the data length later, once the series are aligned.
func (p Params) Validate(limits Limits) error {
	if p.Start.IsZero() {
		return &models.InvalidParameterError{Param: "start", Reason: "is required"}
	}
	if p.End.IsZero() {
		return &models.InvalidParameterError{Param: "end", Reason: "is required"}
	}
	if p.Start.After(p.End) {
		return &models.InvalidParameterError{
			Param:  "start",
			Reason: fmt.Sprintf("%s is after end %s", p.Start.Format(models.DateLayout), p.End.Format(models.DateLayout)),
		}
	}
	if p.MAPeriod < 1 || p.MAPeriod < limits.MinMAPeriod || (limits.MaxMAPeriod > 0 && p.MAPeriod > limits.MaxMAPeriod) {
		return &models.InvalidParameterError{
			Param:  "ma_period",
			Reason: fmt.Sprintf("must be between %d and %d", max(limits.MinMAPeriod, 1), limits.MaxMAPeriod),
		}
	}
	if math.IsNaN(p.Leverage) || math.IsInf(p.Leverage, 0) || p.Leverage <= 0 ||
		p.Leverage < limits.MinLeverage || (limits.MaxLeverage > 0 && p.Leverage > limits.MaxLeverage) {
		return &models.InvalidParameterError{
			Param:  "leverage",
			Reason: fmt.Sprintf("must be between %g and %g", limits.MinLeverage, limits.MaxLeverage),
		}
	}
	return nil
}

// Normalize truncates both dates to UTC midnight
func (p Params) Normalize() Params {
	p.Start = models.TruncateDay(p.Start)
	p.End = models.TruncateDay(p.End)
	return p
}

// WarmupDays is the calendar-day lead fetched before Start so the moving
// average is already live on the first displayed day
func WarmupDays(maPeriod int) int {
	return int(float64(maPeriod)*1.5) + 30
}

// FetchStart returns the first calendar day to request from the provider
func (p Params) FetchStart(warmup bool) time.Time {
	if !warmup {
		return p.Start
	}
	return p.Start.AddDate(0, 0, -WarmupDays(p.MAPeriod))
}
