package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/lrs-backtest/internal/backtest"
)

func TestRunParams(t *testing.T) {
	now := time.Date(2024, 6, 14, 20, 0, 0, 0, time.UTC)
	btConfig := backtest.DefaultBacktestConfig()
	t.Cleanup(func() { runFlags.start, runFlags.end, runFlags.maPeriod, runFlags.leverage = "", "", 0, 0 })

	params, err := runParams(btConfig, now)
	require.NoError(t, err)
	assert.Equal(t, btConfig.DefaultParams(now), params)

	runFlags.start = "2012-01-03"
	runFlags.maPeriod = 100
	runFlags.leverage = 2
	params, err = runParams(btConfig, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2012, 1, 3, 0, 0, 0, 0, time.UTC), params.Start)
	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), params.End)
	assert.Equal(t, 100, params.MAPeriod)
	assert.Equal(t, 2.0, params.Leverage)

	runFlags.end = "14/06/2024"
	_, err = runParams(btConfig, now)
	assert.Error(t, err)
}
