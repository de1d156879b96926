package datasource

import (
	"context"
	"time"

	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/models"
	"github.com/yourusername/lrs-backtest/internal/repository"
)

const storeLayer = "postgres"

// StoredProvider is a read-through Provider backed by a durable price store.
// Closed sessions never change, so a covered window is served from the store.
type StoredProvider struct {
	next   Provider
	repo   repository.PriceRepository
	clock  func() time.Time
	logger *logger.FetchLogger
}

// NewStoredProvider creates a read-through decorator around next
func NewStoredProvider(next Provider, repo repository.PriceRepository, fetchLogger *logger.FetchLogger) *StoredProvider {
	return &StoredProvider{
		next:   next,
		repo:   repo,
		clock:  time.Now,
		logger: fetchLogger,
	}
}

// Name returns the name of the wrapped data source
func (sp *StoredProvider) Name() string {
	return sp.next.Name()
}

// FetchDaily serves covered windows from the store. Otherwise it fetches the
// union of the request and the stored window and replaces what is stored.
// Store failures degrade to the upstream provider rather than failing the run.
func (sp *StoredProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	covered, err := sp.repo.GetCoveredRange(ctx, ticker)
	if err != nil {
		sp.logger.WithError(err).WithField("ticker", ticker).Warn("Price store lookup failed")
	} else if covered != nil && covered.Covers(start, end) {
		bars, err := sp.repo.GetBars(ctx, ticker, start, end)
		if err == nil {
			metrics.RecordCacheLookup(storeLayer, true)
			sp.logger.LogCacheHit(storeLayer, ticker)
			return bars, nil
		}
		sp.logger.WithError(err).WithField("ticker", ticker).Warn("Price store read failed")
	}
	metrics.RecordCacheLookup(storeLayer, false)

	// refetch the stored window as well so every stored bar shares one
	// adjustment basis
	fetchStart, fetchEnd := start, end
	if covered != nil {
		if covered.Start.Before(fetchStart) {
			fetchStart = covered.Start
		}
		if covered.End.After(fetchEnd) {
			fetchEnd = covered.End
		}
	}

	bars, err := sp.next.FetchDaily(ctx, ticker, fetchStart, fetchEnd)
	if err != nil {
		return nil, err
	}

	// only persist through the last closed session
	storeEnd := fetchEnd
	if today := models.TruncateDay(sp.clock().UTC()); !storeEnd.Before(today) {
		storeEnd = today.AddDate(0, 0, -1)
	}
	if !storeEnd.Before(fetchStart) {
		if err := sp.repo.SaveBars(ctx, ticker, fetchStart, storeEnd, filterRange(bars, fetchStart, storeEnd)); err != nil {
			sp.logger.WithError(err).WithField("ticker", ticker).Warn("Price store write failed")
		}
	}

	return filterRange(bars, start, end), nil
}
