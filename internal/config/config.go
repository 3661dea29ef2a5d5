// Copyright (c) 2025 Neomantra Corp

// Package config defines the recorder service configuration. Config is
// loaded from a YAML file with fields overridable via NEXUS_* environment
// variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure.
type Config struct {
	Recorder RecorderConfig `mapstructure:"recorder"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Writer   WriterConfig   `mapstructure:"writer"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// RecorderConfig holds the ingestion loop options.
type RecorderConfig struct {
	BaseDirectory             string   `mapstructure:"base_directory"`
	Symbols                   []string `mapstructure:"symbols"`
	Source                    string   `mapstructure:"source"`
	Venue                     string   `mapstructure:"venue"`
	FlushRows                 int      `mapstructure:"flush_rows"`
	FlushIntervalSeconds      float64  `mapstructure:"flush_interval_seconds"`
	BaseReconnectDelaySeconds int      `mapstructure:"base_reconnect_delay_seconds"`
	MaxReconnectDelaySeconds  int      `mapstructure:"max_reconnect_delay_seconds"`
}

// FeedConfig holds the upstream endpoints and the preferred regime.
type FeedConfig struct {
	PreferredFeedMode string  `mapstructure:"preferred_feed_mode"` // live|delayed
	WSURL             string  `mapstructure:"ws_url"`
	SnapshotURL       string  `mapstructure:"snapshot_url"`
	PollSeconds       float64 `mapstructure:"poll_seconds"`
}

// WriterConfig tunes the event log writer.
type WriterConfig struct {
	BatchSize          int   `mapstructure:"batch_size"`
	RowGroupTargetRows int64 `mapstructure:"row_group_target_rows"`
	CompressionLevel   int   `mapstructure:"compression_level"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the optional prometheus endpoint of the shell.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// FlushInterval returns the flush interval as a duration.
func (c *RecorderConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalSeconds * float64(time.Second))
}

// BaseReconnectDelay returns the initial reconnect backoff as a duration.
func (c *RecorderConfig) BaseReconnectDelay() time.Duration {
	return time.Duration(c.BaseReconnectDelaySeconds) * time.Second
}

// MaxReconnectDelay returns the reconnect backoff ceiling as a duration.
func (c *RecorderConfig) MaxReconnectDelay() time.Duration {
	return time.Duration(c.MaxReconnectDelaySeconds) * time.Second
}

// Load reads config from a YAML file with NEXUS_* env var overrides and
// the documented defaults applied.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("NEXUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("recorder.flush_rows", 2000)
	v.SetDefault("recorder.flush_interval_seconds", 2.0)
	v.SetDefault("recorder.base_reconnect_delay_seconds", 5)
	v.SetDefault("recorder.max_reconnect_delay_seconds", 60)
	v.SetDefault("feed.preferred_feed_mode", "live")
	v.SetDefault("feed.poll_seconds", 1.0)
	v.SetDefault("writer.batch_size", 10000)
	v.SetDefault("writer.row_group_target_rows", 250000)
	v.SetDefault("writer.compression_level", 3)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("metrics.port", 9090)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Recorder.BaseDirectory == "" {
		return fmt.Errorf("recorder.base_directory is required")
	}
	if len(c.Recorder.Symbols) == 0 {
		return fmt.Errorf("recorder.symbols must name at least one symbol")
	}
	if c.Recorder.Source == "" {
		return fmt.Errorf("recorder.source is required")
	}
	switch c.Feed.PreferredFeedMode {
	case "live", "delayed":
	default:
		return fmt.Errorf("feed.preferred_feed_mode must be live or delayed")
	}
	if c.Feed.PreferredFeedMode == "live" && c.Feed.WSURL == "" {
		return fmt.Errorf("feed.ws_url is required for live mode")
	}
	if c.Feed.PreferredFeedMode == "delayed" && c.Feed.SnapshotURL == "" {
		return fmt.Errorf("feed.snapshot_url is required for delayed mode")
	}
	if c.Writer.BatchSize <= 0 {
		return fmt.Errorf("writer.batch_size must be > 0")
	}
	if c.Writer.RowGroupTargetRows <= 0 {
		return fmt.Errorf("writer.row_group_target_rows must be > 0")
	}
	return nil
}
