// Package config provides configuration management for the LRS backtest service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix         = "LRS"
	defaultConfigPath = "config/config.yaml"
)

// Load reads and parses the configuration from file and environment variables
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// A missing file is not an error: defaults and environment variables apply.
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	if data, err := os.ReadFile(configPath); err == nil {
		if err := v.ReadConfig(bytes.NewBufferString(os.ExpandEnv(string(data)))); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// setDefaults mirrors the original tool's request defaults and bounds.
// Every key is registered so AutomaticEnv can override it without a file.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lrs-backtest")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", 5001)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 120)
	v.SetDefault("server.request_timeout_seconds", 90)

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("market_data.fallback_url", "https://query2.finance.yahoo.com")
	v.SetDefault("market_data.csv_dir", "")
	v.SetDefault("market_data.api_key", "")
	v.SetDefault("market_data.timeout_seconds", 60)
	v.SetDefault("market_data.max_retries", 3)
	v.SetDefault("market_data.rate_limit", 5.0)
	v.SetDefault("market_data.circuit_breaker_max", 5)

	v.SetDefault("instruments.leveraged", "TQQQ")
	v.SetDefault("instruments.underlying", "QQQ")
	v.SetDefault("instruments.benchmark", "^GSPC")
	v.SetDefault("instruments.defensive", "IAU")
	v.SetDefault("instruments.native_leverage", 3.0)
	v.SetDefault("instruments.underlying_proxies", []map[string]string{
		{"ticker": "^GSPC", "until": "1971-01-01"},
		{"ticker": "^IXIC", "until": "1986-01-01"},
		{"ticker": "^NDX", "until": "2000-01-01"},
	})
	v.SetDefault("instruments.defensive_proxies", []map[string]string{
		{"ticker": "GC=F"},
		{"ticker": "_CASH"},
	})

	v.SetDefault("backtest.default_start", "1970-01-01")
	v.SetDefault("backtest.default_ma_period", 200)
	v.SetDefault("backtest.default_leverage", 3.0)
	v.SetDefault("backtest.min_ma_period", 1)
	v.SetDefault("backtest.max_ma_period", 500)
	v.SetDefault("backtest.min_leverage", 1.0)
	v.SetDefault("backtest.max_leverage", 5.0)
	v.SetDefault("backtest.base_value", 1.0)
	v.SetDefault("backtest.trading_days_per_year", 252)
	v.SetDefault("backtest.rolling_window", 252)
	v.SetDefault("backtest.risk_free_rate", 0.0)
	v.SetDefault("backtest.warmup_enabled", true)
	v.SetDefault("backtest.downsample_threshold", 1000)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl_minutes", 240)
	v.SetDefault("cache.max_entries", 256)
	v.SetDefault("cache.warm_schedule", "")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 5)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}
