package datasource

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/lrs-backtest/internal/config"
	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/repository"
)

// SourceType represents the type of data source
type SourceType string

const (
	// YahooSourceType fetches from the Yahoo Finance chart API
	YahooSourceType SourceType = yahooSourceName
	// CSVSourceType reads local CSV files
	CSVSourceType SourceType = csvSourceName
)

// Chain is the composed provider stack plus handles the caller may need
type Chain struct {
	Provider Provider
	Cache    *CachedProvider
	HTTP     *RateLimitedHTTPClient
}

// Close releases the HTTP client, if any
func (c *Chain) Close() error {
	if c.HTTP != nil {
		return c.HTTP.Close()
	}
	return nil
}

// NewProvider builds the upstream source, then layers the durable store
// (when store is non-nil) and the in-memory cache (when enabled) over it
func NewProvider(cfg *config.Config, log *logrus.Logger, store repository.PriceRepository) (*Chain, error) {
	fetchLogger := logger.NewFetchLogger(log)
	chain := &Chain{}

	switch SourceType(cfg.MarketData.Provider) {
	case YahooSourceType:
		httpCfg := DefaultHTTPClientConfig()
		httpCfg.Timeout = time.Duration(cfg.MarketData.TimeoutSeconds) * time.Second
		httpCfg.MaxRetries = cfg.MarketData.MaxRetries
		httpCfg.RateLimit = cfg.MarketData.RateLimit
		httpCfg.CircuitBreakerMax = cfg.MarketData.CircuitBreakerMax

		chain.HTTP = NewRateLimitedHTTPClient(yahooSourceName, httpCfg, log)
		chain.Provider = NewYahooProvider(chain.HTTP, fetchLogger, cfg.MarketData.BaseURL, cfg.MarketData.FallbackURL)

	case CSVSourceType:
		if cfg.MarketData.CSVDir == "" {
			return nil, fmt.Errorf("csv provider requires market_data.csv_dir")
		}
		chain.Provider = NewCSVProvider(cfg.MarketData.CSVDir, fetchLogger)

	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.MarketData.Provider)
	}

	if store != nil {
		chain.Provider = NewStoredProvider(chain.Provider, store, fetchLogger)
	}

	if cfg.Cache.Enabled {
		chain.Cache = NewCachedProvider(chain.Provider, cfg.CacheTTL(), cfg.Cache.MaxEntries, fetchLogger)
		chain.Provider = chain.Cache
	}

	return chain, nil
}
