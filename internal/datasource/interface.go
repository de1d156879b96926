package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// Provider fetches daily closing prices from a market data source
type Provider interface {
	// FetchDaily returns the bars of ticker dated within [start, end], oldest first
	FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error)

	// Name returns the name of the data source
	Name() string
}

// DataSourceError represents errors from data source operations
type DataSourceError struct {
	Source  string // Data source name
	Code    string // Error code (e.g., "rate_limit_exceeded")
	Message string // Error message
	Err     error  // Underlying error
}

func (e DataSourceError) Error() string {
	if e.Err != nil {
		return e.Source + ": " + e.Code + ": " + e.Message + " (" + e.Err.Error() + ")"
	}
	return e.Source + ": " + e.Code + ": " + e.Message
}

// Unwrap returns the underlying error
func (e DataSourceError) Unwrap() error {
	return e.Err
}

// Common error codes
const (
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeNotFound             = "not_found"
	ErrCodeInvalidData          = "invalid_data"
	ErrCodeNetworkError         = "network_error"
	ErrCodeServerError          = "server_error"
	ErrCodeCircuitOpen          = "circuit_open"
	ErrCodeUnknown              = "unknown"
)

// Sentinel errors
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrNotFound          = errors.New("data not found")
	ErrInvalidData       = errors.New("invalid data format")
	ErrCircuitOpen       = errors.New("circuit breaker open")
)

// NewDataSourceError creates a new data source error
func NewDataSourceError(source, code, message string, err error) DataSourceError {
	return DataSourceError{
		Source:  source,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// unavailable wraps a fetch failure so callers can map it to the upstream error class
func unavailable(source, ticker string, err error) error {
	return &models.UpstreamUnavailableError{Source: source, Ticker: ticker, Err: err}
}

// filterRange keeps the bars dated within [start, end]
func filterRange(bars []models.PriceBar, start, end time.Time) []models.PriceBar {
	out := make([]models.PriceBar, 0, len(bars))
	for _, bar := range bars {
		if bar.Date.Before(start) || bar.Date.After(end) {
			continue
		}
		out = append(out, bar)
	}
	return out
}
