// Package config provides configuration management for the LRS backtest service.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app" validate:"required"`
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	MarketData  MarketDataConfig  `mapstructure:"market_data" validate:"required"`
	Instruments InstrumentsConfig `mapstructure:"instruments" validate:"required"`
	Backtest    BacktestConfig    `mapstructure:"backtest" validate:"required"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the HTTP API listener
type ServerConfig struct {
	Port                  int `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds    int `mapstructure:"read_timeout_seconds" validate:"required,gt=0"`
	WriteTimeoutSeconds   int `mapstructure:"write_timeout_seconds" validate:"required,gt=0"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds" validate:"required,gt=0"`
}

// MarketDataConfig represents the upstream daily price provider
type MarketDataConfig struct {
	Provider          string  `mapstructure:"provider" validate:"required,provider"`
	BaseURL           string  `mapstructure:"base_url" validate:"required_if=Provider yahoo,omitempty,url"`
	FallbackURL       string  `mapstructure:"fallback_url" validate:"omitempty,url"`
	CSVDir            string  `mapstructure:"csv_dir" validate:"required_if=Provider csv"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"required,gt=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"required,gt=0"`
}

// InstrumentsConfig names the tickers for each strategy role
type InstrumentsConfig struct {
	Leveraged      string  `mapstructure:"leveraged" validate:"required"`
	Underlying     string  `mapstructure:"underlying" validate:"required"`
	Benchmark      string  `mapstructure:"benchmark" validate:"required"`
	Defensive      string  `mapstructure:"defensive" validate:"required"`
	NativeLeverage float64 `mapstructure:"native_leverage" validate:"required,gt=0"`

	UnderlyingProxies []ProxyConfig `mapstructure:"underlying_proxies" validate:"dive"`
	DefensiveProxies  []ProxyConfig `mapstructure:"defensive_proxies" validate:"dive"`
}

// ProxyConfig names a ticker that stands in for a role before until.
// An empty until keeps it until the role's own instrument lists.
type ProxyConfig struct {
	Ticker string `mapstructure:"ticker" validate:"required"`
	Until  string `mapstructure:"until" validate:"omitempty,isodate"`
}

// BacktestConfig represents backtest defaults and parameter bounds
type BacktestConfig struct {
	DefaultStart        string  `mapstructure:"default_start" validate:"required,isodate"`
	DefaultMAPeriod     int     `mapstructure:"default_ma_period" validate:"required,gt=0"`
	DefaultLeverage     float64 `mapstructure:"default_leverage" validate:"required,gt=0"`
	MinMAPeriod         int     `mapstructure:"min_ma_period" validate:"required,gt=0"`
	MaxMAPeriod         int     `mapstructure:"max_ma_period" validate:"required,gtefield=MinMAPeriod"`
	MinLeverage         float64 `mapstructure:"min_leverage" validate:"required,gt=0"`
	MaxLeverage         float64 `mapstructure:"max_leverage" validate:"required,gtefield=MinLeverage"`
	BaseValue           float64 `mapstructure:"base_value" validate:"required,gt=0"`
	TradingDaysPerYear  int     `mapstructure:"trading_days_per_year" validate:"required,gt=0"`
	RollingWindow       int     `mapstructure:"rolling_window" validate:"required,gt=1"`
	RiskFreeRate        float64 `mapstructure:"risk_free_rate" validate:"gte=0,lte=1"`
	WarmupEnabled       bool    `mapstructure:"warmup_enabled"`
	DownsampleThreshold int     `mapstructure:"downsample_threshold" validate:"gte=0"`
}

// CacheConfig represents the in-memory price cache and its warmer
type CacheConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TTLMinutes   int    `mapstructure:"ttl_minutes" validate:"required_if=Enabled true,omitempty,gt=0"`
	MaxEntries   int    `mapstructure:"max_entries" validate:"required_if=Enabled true,omitempty,gt=0"`
	WarmSchedule string `mapstructure:"warm_schedule"`
}

// DatabaseConfig represents the optional durable price store
type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port           int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Name           string `mapstructure:"name" validate:"required_if=Enabled true"`
	User           string `mapstructure:"user" validate:"required_if=Enabled true"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode" validate:"omitempty,oneof=disable require verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"omitempty,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// ListenAddr returns the HTTP listen address
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RequestTimeout returns the per-request deadline
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns the price cache entry lifetime
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}
