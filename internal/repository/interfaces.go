package repository

import (
	"context"
	"time"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// PriceRepository defines the interface for durable daily price access
type PriceRepository interface {
	// GetCoveredRange returns the stored window for ticker, or nil when nothing is stored
	GetCoveredRange(ctx context.Context, ticker string) (*models.PriceRange, error)
	GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error)
	// SaveBars replaces the ticker's stored bars and window with one fetch over [start, end]
	SaveBars(ctx context.Context, ticker string, start, end time.Time, bars []models.PriceBar) error
}
