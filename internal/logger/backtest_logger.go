package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// BacktestLogger logs the lifecycle of a backtest run.
type BacktestLogger struct {
	*logrus.Entry
}

// NewBacktestLogger creates a new backtest logger.
func NewBacktestLogger(baseLogger *logrus.Logger) *BacktestLogger {
	return &BacktestLogger{
		Entry: baseLogger.WithField("component", "backtest"),
	}
}

// LogRunStarted logs the parameters of a run before data is fetched.
func (bl *BacktestLogger) LogRunStarted(start, end time.Time, maPeriod int, leverage float64, fetchStart time.Time) {
	bl.WithFields(logrus.Fields{
		"event_type":  "run_started",
		"start":       start.Format("2006-01-02"),
		"end":         end.Format("2006-01-02"),
		"ma_period":   maPeriod,
		"leverage":    leverage,
		"fetch_start": fetchStart.Format("2006-01-02"),
	}).Info("Backtest run started")
}

// LogRunCompleted logs the headline results of a successful run.
func (bl *BacktestLogger) LogRunCompleted(tradingDays, zones int, finalNAV, cagr float64, duration time.Duration) {
	bl.WithFields(logrus.Fields{
		"event_type":   "run_completed",
		"trading_days": tradingDays,
		"zones":        zones,
		"final_nav":    finalNAV,
		"cagr":         cagr,
		"duration_ms":  duration.Milliseconds(),
	}).Info("Backtest run completed")
}

// LogRunFailed logs a run that returned an error.
func (bl *BacktestLogger) LogRunFailed(err error, duration time.Duration) {
	bl.WithFields(logrus.Fields{
		"event_type":  "run_failed",
		"duration_ms": duration.Milliseconds(),
	}).WithError(err).Warn("Backtest run failed")
}

// LogLateStart warns that the data begins well after the requested start.
func (bl *BacktestLogger) LogLateStart(requested, first time.Time) {
	bl.WithFields(logrus.Fields{
		"event_type":     "late_start",
		"requested":      requested.Format("2006-01-02"),
		"first_trade_on": first.Format("2006-01-02"),
	}).Warn("Price history starts after the requested date")
}
