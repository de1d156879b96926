package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/models"
)

const memoryLayer = "memory"

// CacheKey identifies one fetched window of one ticker
type CacheKey struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// String returns string representation of cache key
func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Ticker, k.Start.Format(models.DateLayout), k.End.Format(models.DateLayout))
}

// CacheStats is a snapshot of cache effectiveness
type CacheStats struct {
	Hits    uint64
	Misses  uint64
	Entries int
}

// HitRatio returns hits over lookups, or 0 before the first lookup
func (s CacheStats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// CachedProvider decorates a Provider with an in-memory TTL cache.
// Cached slices are shared between callers and must not be mutated.
type CachedProvider struct {
	next    Provider
	cache   *cache.Cache
	ttl     time.Duration
	maxSize int
	logger  *logger.FetchLogger

	mu        sync.Mutex
	hitCount  uint64
	missCount uint64
}

// NewCachedProvider creates a caching decorator around next
func NewCachedProvider(next Provider, ttl time.Duration, maxSize int, fetchLogger *logger.FetchLogger) *CachedProvider {
	return &CachedProvider{
		next:    next,
		cache:   cache.New(ttl, ttl*2),
		ttl:     ttl,
		maxSize: maxSize,
		logger:  fetchLogger,
	}
}

// Name returns the name of the wrapped data source
func (cp *CachedProvider) Name() string {
	return cp.next.Name()
}

// FetchDaily serves a window from cache or delegates and stores the result
func (cp *CachedProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	key := CacheKey{Ticker: ticker, Start: start, End: end}.String()

	if cached, found := cp.cache.Get(key); found {
		if bars, ok := cached.([]models.PriceBar); ok {
			cp.record(true)
			cp.logger.LogCacheHit(memoryLayer, ticker)
			return bars, nil
		}
	}
	cp.record(false)

	bars, err := cp.next.FetchDaily(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}

	cp.set(key, bars)
	return bars, nil
}

// Stats returns the current hit and miss counters
func (cp *CachedProvider) Stats() CacheStats {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return CacheStats{Hits: cp.hitCount, Misses: cp.missCount, Entries: cp.cache.ItemCount()}
}

// Clear flushes the entire cache
func (cp *CachedProvider) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.cache.Flush()
	cp.hitCount = 0
	cp.missCount = 0
	metrics.UpdateCacheStats(0, 0)
}

func (cp *CachedProvider) set(key string, bars []models.PriceBar) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.maxSize > 0 && cp.cache.ItemCount() >= cp.maxSize {
		cp.cache.DeleteExpired()
		if cp.cache.ItemCount() >= cp.maxSize {
			cp.evictOldest()
		}
	}
	cp.cache.Set(key, bars, cp.ttl)
}

// evictOldest drops the entry closest to expiry. Caller holds mu.
func (cp *CachedProvider) evictOldest() {
	var oldestKey string
	var oldest int64
	for k, item := range cp.cache.Items() {
		if oldestKey == "" || item.Expiration < oldest {
			oldestKey, oldest = k, item.Expiration
		}
	}
	if oldestKey != "" {
		cp.cache.Delete(oldestKey)
	}
}

func (cp *CachedProvider) record(hit bool) {
	cp.mu.Lock()
	if hit {
		cp.hitCount++
	} else {
		cp.missCount++
	}
	stats := CacheStats{Hits: cp.hitCount, Misses: cp.missCount, Entries: cp.cache.ItemCount()}
	cp.mu.Unlock()

	metrics.RecordCacheLookup(memoryLayer, hit)
	metrics.UpdateCacheStats(stats.HitRatio(), stats.Entries)
}
