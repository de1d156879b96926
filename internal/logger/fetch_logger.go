package logger

import (
	"time"

	"github.com/sirupsen/logrus"
)

// FetchLogger logs market data retrieval.
type FetchLogger struct {
	*logrus.Entry
}

// NewFetchLogger creates a new fetch logger.
func NewFetchLogger(baseLogger *logrus.Logger) *FetchLogger {
	return &FetchLogger{
		Entry: baseLogger.WithField("component", "market_data"),
	}
}

// LogFetch logs a completed upstream request for one ticker.
func (fl *FetchLogger) LogFetch(source, ticker string, start, end time.Time, bars int, duration time.Duration) {
	fl.WithFields(logrus.Fields{
		"source":      source,
		"ticker":      ticker,
		"start":       start.Format("2006-01-02"),
		"end":         end.Format("2006-01-02"),
		"bars":        bars,
		"duration_ms": duration.Milliseconds(),
	}).Debug("Fetched daily bars")
}

// LogFetchFailed logs an upstream request that failed.
func (fl *FetchLogger) LogFetchFailed(source, ticker string, err error) {
	fl.WithFields(logrus.Fields{
		"source": source,
		"ticker": ticker,
	}).WithError(err).Warn("Daily bar fetch failed")
}

// LogCacheHit logs a cache or store hit.
func (fl *FetchLogger) LogCacheHit(layer, ticker string) {
	fl.WithFields(logrus.Fields{
		"layer":  layer,
		"ticker": ticker,
	}).Debug("Price cache hit")
}
