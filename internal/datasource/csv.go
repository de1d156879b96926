package datasource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/yourusername/lrs-backtest/internal/logger"
	"github.com/yourusername/lrs-backtest/internal/metrics"
	"github.com/yourusername/lrs-backtest/internal/models"
)

const csvSourceName = "csv"

// CSVProvider serves daily closes from one "date,close" file per ticker
type CSVProvider struct {
	dir    string
	logger *logger.FetchLogger
}

// NewCSVProvider creates a provider reading files from dir
func NewCSVProvider(dir string, fetchLogger *logger.FetchLogger) *CSVProvider {
	return &CSVProvider{dir: dir, logger: fetchLogger}
}

// Name returns the name of the data source
func (p *CSVProvider) Name() string {
	return csvSourceName
}

// FetchDaily reads {dir}/{ticker}.csv and returns the bars inside [start, end]
func (p *CSVProvider) FetchDaily(ctx context.Context, ticker string, start, end time.Time) ([]models.PriceBar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	began := time.Now()
	bars, err := p.readFile(p.pathFor(ticker))
	if err != nil {
		metrics.RecordUpstreamFetch(csvSourceName, false, time.Since(began).Seconds())
		p.logger.LogFetchFailed(csvSourceName, ticker, err)
		return nil, unavailable(csvSourceName, ticker, err)
	}

	bars = filterRange(bars, start, end)
	metrics.RecordUpstreamFetch(csvSourceName, true, time.Since(began).Seconds())
	p.logger.LogFetch(csvSourceName, ticker, start, end, len(bars), time.Since(began))
	return bars, nil
}

// pathFor maps a ticker to its file, dropping characters such as the index caret
func (p *CSVProvider) pathFor(ticker string) string {
	name := strings.NewReplacer("^", "", "/", "_", "\\", "_").Replace(ticker)
	return filepath.Join(p.dir, name+".csv")
}

func (p *CSVProvider) readFile(path string) ([]models.PriceBar, error) {
	// #nosec G304 -- directory is operator provided via configuration.
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, NewDataSourceError(csvSourceName, ErrCodeNotFound, "missing file "+filepath.Base(path), ErrNotFound)
		}
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer file.Close()

	return ParseCSV(file)
}

// ParseCSV reads a "date,close" file with a header row. Rows keep file order;
// integrity checks are left to the caller.
func ParseCSV(r io.Reader) ([]models.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, "read csv header", err)
	}
	dateCol, closeCol := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "date":
			dateCol = i
		case "adj close", "adj_close", "adjclose":
			closeCol = i
		case "close":
			if closeCol < 0 {
				closeCol = i
			}
		}
	}
	if dateCol < 0 || closeCol < 0 {
		return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, "csv header needs date and close columns", ErrInvalidData)
	}

	var bars []models.PriceBar
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, fmt.Sprintf("read csv record %d", line), err)
		}
		if len(record) <= dateCol || len(record) <= closeCol {
			return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, fmt.Sprintf("short csv record %d", line), ErrInvalidData)
		}

		raw := strings.TrimSpace(record[closeCol])
		if raw == "" || strings.EqualFold(raw, "null") || strings.EqualFold(raw, "nan") {
			continue
		}

		day, err := time.Parse(models.DateLayout, strings.TrimSpace(record[dateCol]))
		if err != nil {
			return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, fmt.Sprintf("parse date on record %d", line), err)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, NewDataSourceError(csvSourceName, ErrCodeInvalidData, fmt.Sprintf("parse close on record %d", line), err)
		}

		bars = append(bars, models.PriceBar{Date: day, Close: price.InexactFloat64()})
	}

	return bars, nil
}
