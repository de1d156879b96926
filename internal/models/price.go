package models

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in configs
const DateLayout = "2006-01-02"

// PriceBar is one daily close for an instrument
type PriceBar struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Series is an ordered run of daily bars for a single ticker
type Series struct {
	Ticker string     `json:"ticker"`
	Bars   []PriceBar `json:"bars"`
}

// TruncateDay strips the clock from t and moves it to UTC midnight
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Len returns the number of bars
func (s Series) Len() int {
	return len(s.Bars)
}

// Closes returns the close prices in date order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}
	return closes
}

// Dates returns the bar dates in order
func (s Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.Bars))
	for i, bar := range s.Bars {
		dates[i] = bar.Date
	}
	return dates
}

// Span describes the first and last bar dates, or a notice when empty
func (s Series) Span() string {
	if len(s.Bars) == 0 {
		return "No data available for this period"
	}
	return fmt.Sprintf("%s to %s", s.Bars[0].Date.Format(DateLayout), s.Bars[len(s.Bars)-1].Date.Format(DateLayout))
}

// Validate checks that dates strictly increase and closes are positive
func (s Series) Validate() error {
	for i, bar := range s.Bars {
		if !(bar.Close > 0) {
			return &DataIntegrityError{Ticker: s.Ticker, Index: i, Reason: fmt.Sprintf("non-positive close %v on %s", bar.Close, bar.Date.Format(DateLayout))}
		}
		if i == 0 {
			continue
		}
		prev := s.Bars[i-1].Date
		if bar.Date.Equal(prev) {
			return &DataIntegrityError{Ticker: s.Ticker, Index: i, Reason: "duplicate date " + bar.Date.Format(DateLayout)}
		}
		if bar.Date.Before(prev) {
			return &DataIntegrityError{Ticker: s.Ticker, Index: i, Reason: fmt.Sprintf("date %s precedes %s", bar.Date.Format(DateLayout), prev.Format(DateLayout))}
		}
	}
	return nil
}

// PriceRange records a date window whose bars have been fetched and stored
type PriceRange struct {
	Ticker    string
	Start     time.Time
	End       time.Time
	FetchedAt time.Time
}

// Covers reports whether the stored window contains [start, end]
func (r PriceRange) Covers(start, end time.Time) bool {
	return !start.Before(r.Start) && !end.After(r.End)
}
