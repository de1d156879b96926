package models

import (
	"errors"
	"fmt"
	"time"
)

// Custom errors
var (
	ErrInvalidParameter    = errors.New("invalid parameter")
	ErrDataIntegrity       = errors.New("data integrity violation")
	ErrEmptyRange          = errors.New("empty date range")
	ErrUpstreamUnavailable = errors.New("market data unavailable")
)

// InvalidParameterError reports a request parameter outside its allowed domain
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidParameter
func (e *InvalidParameterError) Unwrap() error { return ErrInvalidParameter }

// DataIntegrityError reports a malformed upstream series
type DataIntegrityError struct {
	Ticker string
	Index  int
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity error in %s at bar %d: %s", e.Ticker, e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrDataIntegrity
func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

// EmptyRangeError reports that no aligned trading day falls inside the range
type EmptyRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("no aligned trading days between %s and %s", e.Start.Format(DateLayout), e.End.Format(DateLayout))
}

// Unwrap lets errors.Is match ErrEmptyRange
func (e *EmptyRangeError) Unwrap() error { return ErrEmptyRange }

// UpstreamUnavailableError reports a failed market data fetch; callers may retry
type UpstreamUnavailableError struct {
	Source string
	Ticker string
	Err    error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("market data unavailable from %s for %s: %v", e.Source, e.Ticker, e.Err)
	}
	return fmt.Sprintf("market data unavailable from %s for %s", e.Source, e.Ticker)
}

// Unwrap exposes both the sentinel and the underlying cause
func (e *UpstreamUnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}
