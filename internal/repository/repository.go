// Package repository provides PostgreSQL persistence for fetched market data.
package repository

import (
	"fmt"

	"github.com/yourusername/lrs-backtest/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Price PriceRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Price: NewPostgresPriceRepository(db),
	}, nil
}
