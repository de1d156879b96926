package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordBacktestRun(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("success"))

	RecordBacktestRun("success", 0.2)

	assert.Equal(t, before+1, testutil.ToFloat64(BacktestRunsTotal.WithLabelValues("success")))
}

func TestRecordUpstreamFetch(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name    string
		success bool
		status  string
	}{
		{name: "success", success: true, status: "success"},
		{name: "failure", success: false, status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := UpstreamFetchesTotal.WithLabelValues("yahoo", tt.status)
			before := testutil.ToFloat64(counter)
			RecordUpstreamFetch("yahoo", tt.success, 0.1)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}

func TestRecordCacheLookupAndStats(t *testing.T) {
	InitRegistry()
	hits := CacheLookupsTotal.WithLabelValues("memory", "hit")
	before := testutil.ToFloat64(hits)

	RecordCacheLookup("memory", true)
	UpdateCacheStats(0.75, 12)

	assert.Equal(t, before+1, testutil.ToFloat64(hits))
	assert.Equal(t, 0.75, testutil.ToFloat64(CacheHitRatio))
	assert.Equal(t, float64(12), testutil.ToFloat64(CacheEntries))
}

func TestRecordHTTPRequest(t *testing.T) {
	InitRegistry()
	counter := HTTPRequestsTotal.WithLabelValues("/api/backtest", "400")
	before := testutil.ToFloat64(counter)

	RecordHTTPRequest("/api/backtest", http.StatusBadRequest)
	RecordCircuitBreakerTrip("yahoo")

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerExposesMetrics(t *testing.T) {
	InitRegistry()
	RecordBacktestRun("success", 0.1)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lrs_backtest_runs_total")
}
