package database

import (
	"context"
	"fmt"

	"github.com/yourusername/lrs-backtest/internal/config"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS price_bars (
	ticker     TEXT             NOT NULL,
	date       DATE             NOT NULL,
	close      DOUBLE PRECISION NOT NULL CHECK (close > 0),
	PRIMARY KEY (ticker, date)
);

CREATE TABLE IF NOT EXISTS price_ranges (
	ticker     TEXT        PRIMARY KEY,
	start_date DATE        NOT NULL,
	end_date   DATE        NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (start_date <= end_date)
);
`

// Initialize creates a database connection pool and ensures the price schema exists
func Initialize(ctx context.Context, cfg *config.Config) (*DB, error) {
	db, err := NewDB(ctx, &cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// EnsureSchema creates the price tables when they are missing
func EnsureSchema(ctx context.Context, db *DB) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure price schema: %w", err)
	}
	return nil
}
