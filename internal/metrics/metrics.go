// Package metrics provides the centralized Prometheus metrics registry for the backtest service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lrs"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by outcome",
	}, []string{"status"})
	UpstreamFetchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_fetches_total",
		Help:      "Total number of market data fetches by source and outcome",
	}, []string{"source", "status"})
	CacheLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_cache_lookups_total",
		Help:      "Total number of price cache lookups by layer and result",
	}, []string{"layer", "result"})
	CircuitBreakerTripsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "circuit_breaker_trips_total",
		Help:      "Total number of market data circuit breaker trips",
	}, []string{"source"})
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route and status code",
	}, []string{"route", "code"})
)

// Gauge metrics
var (
	CacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "price_cache_hit_ratio",
		Help:      "Hit ratio of the in-memory price cache",
	})
	CacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "price_cache_entries",
		Help:      "Number of series held in the in-memory price cache",
	})
)

// Histogram metrics
var (
	BacktestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_duration_seconds",
		Help:      "Duration of backtest runs in seconds",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})
	UpstreamFetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_fetch_latency_seconds",
		Help:      "Latency of market data fetches in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"source"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(UpstreamFetchesTotal)
		registry.MustRegister(CacheLookupsTotal)
		registry.MustRegister(CircuitBreakerTripsTotal)
		registry.MustRegister(HTTPRequestsTotal)

		registry.MustRegister(CacheHitRatio)
		registry.MustRegister(CacheEntries)

		registry.MustRegister(BacktestDuration)
		registry.MustRegister(UpstreamFetchLatency)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBacktestRun records a finished run and its duration.
func RecordBacktestRun(status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	BacktestDuration.Observe(durationSeconds)
}

// RecordUpstreamFetch records one market data fetch.
func RecordUpstreamFetch(source string, success bool, durationSeconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	UpstreamFetchesTotal.WithLabelValues(source, status).Inc()
	UpstreamFetchLatency.WithLabelValues(source).Observe(durationSeconds)
}

// RecordCacheLookup records a hit or miss on a cache layer.
func RecordCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookupsTotal.WithLabelValues(layer, result).Inc()
}

// UpdateCacheStats updates the in-memory cache gauges.
func UpdateCacheStats(hitRatio float64, entries int) {
	CacheHitRatio.Set(hitRatio)
	CacheEntries.Set(float64(entries))
}

// RecordCircuitBreakerTrip records a circuit breaker trip event.
func RecordCircuitBreakerTrip(source string) {
	CircuitBreakerTripsTotal.WithLabelValues(source).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route string, code int) {
	HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
