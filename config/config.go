// Package config loads the quantlab run configuration from YAML or JSON,
// with QUANTLAB_* environment overrides read from the process and .env files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rustyeddy/quantlab/backtest"
	"github.com/rustyeddy/quantlab/metrics"
	"github.com/rustyeddy/quantlab/strategies"
	"github.com/rustyeddy/quantlab/trend"
	"gopkg.in/yaml.v3"
)

// Config represents the complete quantlab configuration
type Config struct {
	Backtest backtest.Config `json:"backtest" yaml:"backtest"`
	Strategy StrategyConfig  `json:"strategy" yaml:"strategy"`
	Data     DataConfig      `json:"data" yaml:"data"`
	Metrics  MetricsConfig   `json:"metrics" yaml:"metrics"`
	Trend    trend.Options   `json:"trend" yaml:"trend"`
	Sweep    SweepConfig     `json:"sweep" yaml:"sweep"`
	Server   ServerConfig    `json:"server" yaml:"server"`
}

// StrategyConfig selects the strategy and overrides its defaults.
type StrategyConfig struct {
	Kind   strategies.Kind   `json:"kind" yaml:"kind"`
	Params strategies.Params `json:"params,omitempty" yaml:"params,omitempty"`
}

// DataConfig says where bars come from: a CSV/JSON file, or a series in
// the SQLite store.
type DataConfig struct {
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Symbol   string `json:"symbol,omitempty" yaml:"symbol,omitempty"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
}

// MetricsConfig contains Sharpe ratio parameters
type MetricsConfig struct {
	RiskFreeRate   float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	PeriodsPerYear float64 `json:"periods_per_year" yaml:"periods_per_year"`
}

// Options returns the metrics.Compute options for m.
func (m MetricsConfig) Options() []metrics.Option {
	return []metrics.Option{
		metrics.WithRiskFreeRate(m.RiskFreeRate),
		metrics.WithPeriodsPerYear(m.PeriodsPerYear),
	}
}

// SweepConfig bounds parameter sweeps.
type SweepConfig struct {
	Workers int `json:"workers" yaml:"workers"` // 0 means one per CPU
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

// LoadFromFile loads configuration from a file (JSON or YAML) and validates it.
// Sections missing from the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// JSON is also YAML, but the key names differ, so .json files skip
	// straight to the JSON decoder. Anything else tries YAML first.
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, cfg)
	} else if err = yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file, YAML for .yaml/.yml and
// indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Backtest.Validate(); err != nil {
		return err
	}
	if _, err := strategies.ParseKind(string(c.Strategy.Kind)); err != nil {
		return fmt.Errorf("strategy.kind: %w", err)
	}
	if _, err := strategies.New(c.Strategy.Kind, c.Strategy.Params); err != nil {
		return fmt.Errorf("strategy.params: %w", err)
	}
	if c.Data.File != "" && c.Data.Symbol != "" {
		return fmt.Errorf("data.file and data.symbol are mutually exclusive")
	}
	if c.Data.Symbol != "" && (c.Data.DBPath == "" || c.Data.Interval == "") {
		return fmt.Errorf("data.db_path and data.interval required with data.symbol")
	}
	if !(c.Metrics.PeriodsPerYear > 0) {
		return fmt.Errorf("metrics.periods_per_year must be positive")
	}
	if c.Trend.MinLength < 1 {
		return fmt.Errorf("trend.min-length must be at least 1")
	}
	if c.Trend.SidewaysThreshold < 0 {
		return fmt.Errorf("trend.sideways-threshold must not be negative")
	}
	if c.Sweep.Workers < 0 {
		return fmt.Errorf("sweep.workers must not be negative")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Backtest: backtest.DefaultConfig(),
		Strategy: StrategyConfig{
			Kind:   strategies.KindMA,
			Params: strategies.Params{},
		},
		Data: DataConfig{
			Interval: "1h",
		},
		Metrics: MetricsConfig{
			RiskFreeRate:   metrics.DefaultRiskFreeRate,
			PeriodsPerYear: metrics.TradingDaysPerYear,
		},
		Trend: trend.DefaultOptions(),
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}
