package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/models"
)

const (
	yahooSourceName = "yahoo"
	yahooUserAgent  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	yahooChartPath  = "/v8/finance/chart/"
)

// yahooChartResp mirrors the Yahoo v8 chart response, trimmed to daily closes
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []decimal.NullDecimal `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []decimal.NullDecimal `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider implements Provider for the Yahoo Finance chart API
type YahooProvider struct {
	httpClient *RateLimitedHTTPClient
	hosts      []string
	logger     *logger.FetchLogger
}

// NewYahooProvider creates a provider that tries each host in order
func NewYahooProvider(httpClient *RateLimitedHTTPClient, fetchLogger *logger.FetchLogger, hosts ...string) *YahooProvider {
	nonEmpty := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h != "" {
			nonEmpty = append(nonEmpty, h)
		}
	}
	return &YahooProvider{
		httpClient: httpClient,
		hosts:      nonEmpty,
		logger:     fetchLogger,
	}
}

// Name returns the name of the data source
func (p *YahooProvider) Name() string {
	return yahooSourceName
}

// FetchDaily retrieves split- and dividend-adjusted daily closes for ticker
func (p *YahooProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	if len(p.hosts) == 0 {
		return nil, unavailable(yahooSourceName, ticker, errors.New("no hosts configured"))
	}

	began := time.Now()
	var lastErr error
	for _, host := range p.hosts {
		bars, err := p.fetchFromHost(ctx, host, ticker, start, end)
		if err == nil {
			metrics.RecordUpstreamFetch(yahooSourceName, true, time.Since(began).Seconds())
			p.logger.LogFetch(yahooSourceName, ticker, start, end, len(bars), time.Since(began))
			return bars, nil
		}
		lastErr = err
		if ctx.Err() != nil || errors.Is(err, ErrNotFound) {
			break
		}
	}

	metrics.RecordUpstreamFetch(yahooSourceName, false, time.Since(began).Seconds())
	p.logger.LogFetchFailed(yahooSourceName, ticker, lastErr)
	return nil, unavailable(yahooSourceName, ticker, lastErr)
}

func (p *YahooProvider) fetchFromHost(ctx context.Context, host, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", start.Unix()))
	// period2 is exclusive upstream
	params.Set("period2", fmt.Sprintf("%d", end.AddDate(0, 0, 1).Unix()))
	params.Set("interval", "1d")
	params.Set("events", "div,split")
	endpoint := host + yahooChartPath + url.PathEscape(ticker) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(ctx, req)
	if err != nil {
		var dsErr DataSourceError
		if errors.As(err, &dsErr) {
			return nil, dsErr
		}
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNetworkError, "failed to fetch chart", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, "unknown ticker "+ticker, ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewDataSourceError(yahooSourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", ErrRateLimitExceeded)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewDataSourceError(yahooSourceName, ErrCodeServerError, fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var chart yahooChartResp
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData, "failed to parse response", err)
	}

	return parseChart(&chart, start, end)
}

// parseChart converts the chart payload into ascending, de-duplicated daily bars.
// Adjusted closes are preferred; rows with a null close are skipped.
func parseChart(chart *yahooChartResp, start, end time.Time) ([]models.PriceBar, error) {
	if chart.Chart.Error != nil {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeNotFound, chart.Chart.Error.Description, ErrNotFound)
	}
	if len(chart.Chart.Result) == 0 {
		return []models.PriceBar{}, nil
	}

	result := chart.Chart.Result[0]
	var closes []decimal.NullDecimal
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}
	if len(closes) != len(result.Timestamp) {
		return nil, NewDataSourceError(yahooSourceName, ErrCodeInvalidData,
			fmt.Sprintf("%d timestamps but %d closes", len(result.Timestamp), len(closes)), ErrInvalidData)
	}

	bars := make([]models.PriceBar, 0, len(closes))
	for i, ts := range result.Timestamp {
		if !closes[i].Valid {
			continue
		}
		day := models.TruncateDay(time.Unix(ts, 0).UTC())
		if day.Before(start) || day.After(end) {
			continue
		}
		bar := models.PriceBar{Date: day, Close: closes[i].Decimal.InexactFloat64()}
		// intraday rows for the current session share the last date
		if n := len(bars); n > 0 && bars[n-1].Date.Equal(day) {
			bars[n-1] = bar
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}
