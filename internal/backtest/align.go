package backtest

import (
	"math"
	"sort"
	"time"

	"github.com/yourusername/lrs-backtest/internal/models"
)

// CashTicker names a proxy that trades every day and earns nothing
const CashTicker = "_CASH"

// ProxyEra lets Ticker stand in for a role on dates before Until. A zero
// Until keeps the proxy until the role's own instrument starts trading.
type ProxyEra struct {
	Ticker string
	Until  time.Time
}

// stitchedRole supplies one strategy role from its instrument and the
// proxies that precede it
type stitchedRole struct {
	primary string
	eras    []ProxyEra
	closes  map[string]map[time.Time]float64
	starts  map[string]time.Time
}

func newStitchedRole(primary string, eras []ProxyEra, fetched map[string]models.Series) stitchedRole {
	r := stitchedRole{
		primary: primary,
		eras:    eras,
		closes:  make(map[string]map[time.Time]float64),
		starts:  make(map[string]time.Time),
	}
	for _, ticker := range roleTickers(primary, eras) {
		if _, seen := r.closes[ticker]; seen {
			continue
		}
		s := fetched[ticker]
		byDate := make(map[time.Time]float64, len(s.Bars))
		for _, bar := range s.Bars {
			byDate[bar.Date] = bar.Close
		}
		r.closes[ticker] = byDate
		if len(s.Bars) > 0 {
			r.starts[ticker] = s.Bars[0].Date
		}
	}
	return r
}

// roleTickers lists the tickers a role reads, primary first, without cash
func roleTickers(primary string, eras []ProxyEra) []string {
	tickers := []string{primary}
	for _, era := range eras {
		if era.Ticker != CashTicker {
			tickers = append(tickers, era.Ticker)
		}
	}
	return tickers
}

func (r stitchedRole) started(ticker string, d time.Time) bool {
	if ticker == CashTicker {
		return true
	}
	first, ok := r.starts[ticker]
	return ok && !d.Before(first)
}

// source names the instrument holding the role on d. Dated eras win, then
// the primary once it trades, then the first open-ended proxy that trades.
func (r stitchedRole) source(d time.Time) string {
	for _, era := range r.eras {
		if !era.Until.IsZero() && d.Before(era.Until) {
			return era.Ticker
		}
	}
	if r.started(r.primary, d) {
		return r.primary
	}
	for _, era := range r.eras {
		if era.Until.IsZero() && r.started(era.Ticker, d) {
			return era.Ticker
		}
	}
	return r.primary
}

func (r stitchedRole) close(ticker string, d time.Time) (float64, bool) {
	if ticker == CashTicker {
		return 1, true
	}
	c, ok := r.closes[ticker][d]
	return c, ok
}

// covers reports whether the role has a price on d
func (r stitchedRole) covers(d time.Time) bool {
	_, ok := r.close(r.source(d), d)
	return ok
}

func (r stitchedRole) returnOn(ticker string, prev, day time.Time) (float64, bool) {
	from, ok := r.close(ticker, prev)
	if !ok {
		return 0, false
	}
	to, ok := r.close(ticker, day)
	if !ok {
		return 0, false
	}
	return to/from - 1, true
}

// returns computes the role's daily returns over calendar. When the source
// changes, the incoming instrument is used if it traded the previous day,
// otherwise the outgoing one, otherwise the day returns 0.
func (r stitchedRole) returns(calendar []time.Time) []float64 {
	out := make([]float64, len(calendar))
	for i := 1; i < len(calendar); i++ {
		prev, day := calendar[i-1], calendar[i]
		for _, ticker := range []string{r.source(day), r.source(prev)} {
			if ret, ok := r.returnOn(ticker, prev, day); ok {
				out[i] = ret
				break
			}
		}
	}
	return out
}

// primaryReturns is the primary's own return on each day it traded both
// that day and the one before, NaN otherwise
func (r stitchedRole) primaryReturns(calendar []time.Time) []float64 {
	out := make([]float64, len(calendar))
	if len(out) > 0 {
		out[0] = math.NaN()
	}
	for i := 1; i < len(calendar); i++ {
		ret, ok := r.returnOn(r.primary, calendar[i-1], calendar[i])
		if !ok {
			ret = math.NaN()
		}
		out[i] = ret
	}
	return out
}

// tradingCalendar returns, ascending, every fetched date on which all roles
// have a price
func tradingCalendar(roles ...stitchedRole) []time.Time {
	candidates := make(map[time.Time]struct{})
	for _, r := range roles {
		for _, byDate := range r.closes {
			for d := range byDate {
				candidates[d] = struct{}{}
			}
		}
	}

	calendar := make([]time.Time, 0, len(candidates))
	for d := range candidates {
		covered := true
		for _, r := range roles {
			if !r.covers(d) {
				covered = false
				break
			}
		}
		if covered {
			calendar = append(calendar, d)
		}
	}
	sort.Slice(calendar, func(i, j int) bool { return calendar[i].Before(calendar[j]) })
	return calendar
}

// windowBounds returns the half-open index range of dates inside [start, end]
func windowBounds(dates []time.Time, start, end time.Time) (int, int) {
	lo := len(dates)
	for i, d := range dates {
		if !d.Before(start) {
			lo = i
			break
		}
	}
	hi := lo
	for hi < len(dates) && !dates[hi].After(end) {
		hi++
	}
	return lo, hi
}
