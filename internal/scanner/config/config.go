package config

import (
	"time"

	pkgConfig "golang-stock-scanner/pkg/config"
)

// Config holds every setting of the scanner service.
type Config struct {
	App        pkgConfig.App      `mapstructure:"app"`
	Logger     pkgConfig.Logger   `mapstructure:"logger"`
	Database   pkgConfig.Database `mapstructure:"database"`
	Redis      pkgConfig.Redis    `mapstructure:"redis"`
	Telegram   pkgConfig.Telegram `mapstructure:"telegram"`
	Scanner    Scanner            `mapstructure:"scanner"`
	MarketData MarketData         `mapstructure:"market_data"`
}

// Scanner tunes the scan orchestrator and the stream consumers.
type Scanner struct {
	Workers              int           `mapstructure:"workers"`
	FailureRateThreshold float64       `mapstructure:"failure_rate_threshold"`
	RunBudget            time.Duration `mapstructure:"run_budget"`

	RedisStreamScanTriggerTimeout         time.Duration `mapstructure:"redis_stream_scan_trigger_timeout"`
	RedisStreamScanTriggerRetryInterval   time.Duration `mapstructure:"redis_stream_scan_trigger_retry_interval"`
	RedisStreamScanTriggerMaxIdleDuration time.Duration `mapstructure:"redis_stream_scan_trigger_max_idle_duration"`
	RedisStreamScanTriggerMaxRetry        int64         `mapstructure:"redis_stream_scan_trigger_max_retry"`

	RedisStreamAggregateTimeout         time.Duration `mapstructure:"redis_stream_aggregate_timeout"`
	RedisStreamAggregateRetryInterval   time.Duration `mapstructure:"redis_stream_aggregate_retry_interval"`
	RedisStreamAggregateMaxIdleDuration time.Duration `mapstructure:"redis_stream_aggregate_max_idle_duration"`
	RedisStreamAggregateMaxRetry        int64         `mapstructure:"redis_stream_aggregate_max_retry"`
}

// MarketData configures the daily-bar chart API client.
type MarketData struct {
	BaseURL             string        `mapstructure:"base_url"`
	Interval            string        `mapstructure:"interval"`
	Range               string        `mapstructure:"range"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
	CacheTTL            time.Duration `mapstructure:"cache_ttl"`
}

// Load reads the configuration file from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := pkgConfig.Load(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
