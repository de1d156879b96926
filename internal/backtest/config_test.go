package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lrs-backtest/internal/config"
	"github.com/yourusername/lrs-backtest/internal/models"
)

func TestFromConfig(t *testing.T) {
	appCfg, err := config.LoadWithDefaults("testdata/does-not-exist.yaml")
	require.NoError(t, err)

	cfg, err := FromConfig(appCfg)
	require.NoError(t, err)

	assert.Equal(t, DefaultBacktestConfig(), cfg)
	assert.Equal(t, []string{"TQQQ", "QQQ", "^GSPC", "IAU"}, cfg.Instruments.Tickers())
}

func TestFromConfigErrors(t *testing.T) {
	_, err := FromConfig(nil)
	assert.Error(t, err)

	appCfg, err := config.LoadWithDefaults("testdata/does-not-exist.yaml")
	require.NoError(t, err)
	appCfg.Backtest.DefaultStart = "01/02/2020"
	_, err = FromConfig(appCfg)
	assert.Error(t, err)

	appCfg.Backtest.DefaultStart = "2020-01-02"
	appCfg.Backtest.BaseValue = 0
	_, err = FromConfig(appCfg)
	assert.Error(t, err)

	appCfg.Backtest.BaseValue = 1
	appCfg.Instruments.UnderlyingProxies = []config.ProxyConfig{
		{Ticker: "^IXIC", Until: "1986-01-01"},
		{Ticker: "^GSPC", Until: "1971-01-01"},
	}
	_, err = FromConfig(appCfg)
	assert.Error(t, err, "dated eras must ascend")

	appCfg.Instruments.UnderlyingProxies = []config.ProxyConfig{{Ticker: "^NDX", Until: "2000/01/01"}}
	_, err = FromConfig(appCfg)
	assert.Error(t, err)

	appCfg.Instruments.UnderlyingProxies = nil
	appCfg.Instruments.DefensiveProxies = nil
	cfg, err := FromConfig(appCfg)
	require.NoError(t, err)
	assert.Empty(t, cfg.Instruments.UnderlyingEras)
}

func TestParamsValidate(t *testing.T) {
	limits := DefaultBacktestConfig().Limits
	day := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		params    Params
		wantParam string
	}{
		{name: "valid", params: Params{Start: day, End: day.AddDate(0, 1, 0), MAPeriod: 200, Leverage: 3}},
		{name: "same day", params: Params{Start: day, End: day, MAPeriod: 1, Leverage: 1}},
		{name: "missing start", params: Params{End: day, MAPeriod: 200, Leverage: 3}, wantParam: "start"},
		{name: "missing end", params: Params{Start: day, MAPeriod: 200, Leverage: 3}, wantParam: "end"},
		{name: "reversed", params: Params{Start: day, End: day.AddDate(0, 0, -1), MAPeriod: 200, Leverage: 3}, wantParam: "start"},
		{name: "zero ma", params: Params{Start: day, End: day, MAPeriod: 0, Leverage: 3}, wantParam: "ma_period"},
		{name: "ma above max", params: Params{Start: day, End: day, MAPeriod: 501, Leverage: 3}, wantParam: "ma_period"},
		{name: "leverage below min", params: Params{Start: day, End: day, MAPeriod: 10, Leverage: 0.5}, wantParam: "leverage"},
		{name: "leverage above max", params: Params{Start: day, End: day, MAPeriod: 10, Leverage: 5.5}, wantParam: "leverage"},
		{name: "negative leverage", params: Params{Start: day, End: day, MAPeriod: 10, Leverage: -2}, wantParam: "leverage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate(limits)
			if tt.wantParam == "" {
				assert.NoError(t, err)
				return
			}
			var paramErr *models.InvalidParameterError
			require.ErrorAs(t, err, &paramErr)
			assert.Equal(t, tt.wantParam, paramErr.Param)
		})
	}
}
