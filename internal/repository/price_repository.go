package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/lrs-backtest/internal/database"
	"github.com/yourusername/lrs-backtest/internal/models"
)

const (
	errGetRange  = "failed to get covered range: %w"
	errGetBars   = "failed to get price bars: %w"
	errClearBars = "failed to clear price bars: %w"
	errScanBar   = "failed to scan price bar: %w"
	errSaveBars  = "failed to save price bars: %w"
	errSaveRange = "failed to save covered range: %w"
)

const (
	selectRangeSQL = `
		SELECT ticker, start_date, end_date, fetched_at
		FROM price_ranges WHERE ticker = $1
	`
	selectBarsSQL = `
		SELECT date, close FROM price_bars
		WHERE ticker = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`
	deleteBarsSQL = `DELETE FROM price_bars WHERE ticker = $1`
	upsertBarSQL  = `
		INSERT INTO price_bars (ticker, date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, date) DO UPDATE SET close = EXCLUDED.close
	`
	upsertRangeSQL = `
		INSERT INTO price_ranges (ticker, start_date, end_date, fetched_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (ticker) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date   = EXCLUDED.end_date,
			fetched_at = EXCLUDED.fetched_at
	`
)

// PostgresPriceRepository implements PriceRepository for PostgreSQL
type PostgresPriceRepository struct {
	db *database.DB
}

// NewPostgresPriceRepository creates a new price repository
func NewPostgresPriceRepository(db *database.DB) PriceRepository {
	return &PostgresPriceRepository{db: db}
}

// GetCoveredRange retrieves the stored window for ticker
func (r *PostgresPriceRepository) GetCoveredRange(ctx context.Context, ticker string) (*models.PriceRange, error) {
	pr := &models.PriceRange{}
	err := r.db.GetPool().QueryRow(ctx, selectRangeSQL, ticker).Scan(&pr.Ticker, &pr.Start, &pr.End, &pr.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf(errGetRange, err)
	}
	pr.Start = models.TruncateDay(pr.Start)
	pr.End = models.TruncateDay(pr.End)
	return pr, nil
}

// GetBars retrieves stored bars dated within [start, end]
func (r *PostgresPriceRepository) GetBars(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	rows, err := r.db.GetPool().Query(ctx, selectBarsSQL, ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf(errGetBars, err)
	}
	defer rows.Close()

	var bars []models.PriceBar
	for rows.Next() {
		var bar models.PriceBar
		if err := rows.Scan(&bar.Date, &bar.Close); err != nil {
			return nil, fmt.Errorf(errScanBar, err)
		}
		bar.Date = models.TruncateDay(bar.Date)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf(errGetBars, err)
	}

	return bars, nil
}

// SaveBars replaces everything stored for ticker with bars fetched over
// [start, end] in one transaction. Adjusted closes are rescaled by every
// dividend and split, so bars from different fetches are never mixed.
func (r *PostgresPriceRepository) SaveBars(ctx context.Context, ticker string, start, end time.Time, bars []models.PriceBar) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteBarsSQL, ticker); err != nil {
			return fmt.Errorf(errClearBars, err)
		}

		batch := &pgx.Batch{}
		for _, bar := range bars {
			batch.Queue(upsertBarSQL, ticker, bar.Date, bar.Close)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf(errSaveBars, err)
			}
		}

		if _, err := tx.Exec(ctx, upsertRangeSQL, ticker, start, end); err != nil {
			return fmt.Errorf(errSaveRange, err)
		}
		return nil
	})
}
