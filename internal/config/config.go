// Package config loads the application's YAML configuration file, if
// present, and applies environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SinkSection configures the line-protocol sink endpoint. Env vars
// SINK_ORG/SINK_BUCKET/SINK_TOKEN/SINK_URL override the file values.
type SinkSection struct {
	URL    string `yaml:"url"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
	Token  string `yaml:"token"`
}

// ComposerSection sizes the per-symbol pipeline's analyzer windows.
type ComposerSection struct {
	CandleIntervalSeconds float64 `yaml:"candle_interval_seconds"`
	TickWindowSize        int     `yaml:"tick_window_size"`
	OrderFlowWindow       int     `yaml:"order_flow_window"`
	ToxicityThreshold     float64 `yaml:"toxicity_threshold"`
	VPINBucketSize        float64 `yaml:"vpin_bucket_size"`
	VPINWindow            int     `yaml:"vpin_window"`
	ImpactWindow          int     `yaml:"impact_window"`
	VWAPBandMultiplier    float64 `yaml:"vwap_band_multiplier"`
	VWAPRollingWindow     int     `yaml:"vwap_rolling_window"`
	Timeframe             string  `yaml:"timeframe"`
}

// RegimeSection configures the regime detector's rolling windows.
type RegimeSection struct {
	Window    int `yaml:"window"`
	HurstLag  int `yaml:"hurst_lag"`
	VolWindow int `yaml:"vol_window"`
}

// CacheSection configures the Redis latest-signal cache.
type CacheSection struct {
	Addr              string `yaml:"addr"`
	DB                int    `yaml:"db"`
	DefaultTTLSeconds int    `yaml:"default_ttl_seconds"`
}

// DatabaseSection configures the postgres trade journal connection.
type DatabaseSection struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	Enabled      bool   `yaml:"enabled"`
}

// AppConfig is the full application configuration tree.
type AppConfig struct {
	Sink     SinkSection     `yaml:"sink"`
	Composer ComposerSection `yaml:"composer"`
	Regime   RegimeSection   `yaml:"regime"`
	Cache    CacheSection    `yaml:"cache"`
	Database DatabaseSection `yaml:"database"`
}

// Load reads configPath, if non-empty and present, then applies
// environment variable overrides and fills in defaults for any field
// left unset.
func Load(configPath string) (*AppConfig, error) {
	var cfg AppConfig

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file %s: %w", configPath, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("SINK_URL"); v != "" {
		cfg.Sink.URL = v
	}
	if v := os.Getenv("SINK_ORG"); v != "" {
		cfg.Sink.Org = v
	}
	if v := os.Getenv("SINK_BUCKET"); v != "" {
		cfg.Sink.Bucket = v
	}
	if v := os.Getenv("SINK_TOKEN"); v != "" {
		cfg.Sink.Token = v
	}
	if v := os.Getenv("CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.Enabled = b
		}
	}
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Composer.CandleIntervalSeconds == 0 {
		cfg.Composer.CandleIntervalSeconds = 60
	}
	if cfg.Composer.TickWindowSize == 0 {
		cfg.Composer.TickWindowSize = 50
	}
	if cfg.Composer.OrderFlowWindow == 0 {
		cfg.Composer.OrderFlowWindow = 100
	}
	if cfg.Composer.ToxicityThreshold == 0 {
		cfg.Composer.ToxicityThreshold = 0.7
	}
	if cfg.Composer.VPINBucketSize == 0 {
		cfg.Composer.VPINBucketSize = 1000
	}
	if cfg.Composer.VPINWindow == 0 {
		cfg.Composer.VPINWindow = 50
	}
	if cfg.Composer.ImpactWindow == 0 {
		cfg.Composer.ImpactWindow = 100
	}
	if cfg.Composer.VWAPBandMultiplier == 0 {
		cfg.Composer.VWAPBandMultiplier = 2.0
	}
	if cfg.Composer.Timeframe == "" {
		cfg.Composer.Timeframe = "1m"
	}
	if cfg.Regime.Window == 0 {
		cfg.Regime.Window = 100
	}
	if cfg.Regime.HurstLag == 0 {
		cfg.Regime.HurstLag = 20
	}
	if cfg.Regime.VolWindow == 0 {
		cfg.Regime.VolWindow = 30
	}
	if cfg.Cache.DefaultTTLSeconds == 0 {
		cfg.Cache.DefaultTTLSeconds = 60
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
}
