// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the sync layer configuration with priority
// env > file > defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
//
// Thread Safety: safe to read concurrently. Not safe to modify after
// creation.
type Config struct {
	// Server contains remote API settings.
	Server ServerConfig `json:"server" yaml:"server"`

	// Cache contains tiered cache settings.
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Listing contains pagination settings.
	Listing ListingConfig `json:"listing" yaml:"listing"`

	// Telemetry contains metrics and tracing settings.
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Logging contains log output settings.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig contains remote API settings.
type ServerConfig struct {
	// BaseURL is the API root, e.g. "https://neodb.social/api".
	BaseURL string `json:"base_url" yaml:"base_url" validate:"required,url"`

	// Timeout bounds each request end to end.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"min=1s"`

	// RateLimit is the sustained requests-per-second ceiling.
	RateLimit float64 `json:"rate_limit" yaml:"rate_limit" validate:"gt=0"`

	// UserAgent is sent on every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// CacheConfig contains tiered cache settings.
type CacheConfig struct {
	// DataDir holds the badger disk tier. Empty selects in-memory only.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// EntityTTL is the default lifetime of a cached entity.
	EntityTTL time.Duration `json:"entity_ttl" yaml:"entity_ttl" validate:"min=1m"`

	// ListTTL is the lifetime of a persisted listing first page.
	ListTTL time.Duration `json:"list_ttl" yaml:"list_ttl" validate:"min=1m"`

	// SyncWrites forces fsync on every disk write.
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`
}

// ListingConfig contains pagination settings.
type ListingConfig struct {
	// PageSize is the server's listing page size.
	PageSize int `json:"page_size" yaml:"page_size" validate:"min=1"`
}

// TelemetryConfig contains metrics and tracing settings.
type TelemetryConfig struct {
	// MetricsExporter is one of "prometheus", "stdout", "none".
	MetricsExporter string `json:"metrics_exporter" yaml:"metrics_exporter" validate:"oneof=prometheus stdout none"`

	// TracesExporter is one of "stdout", "none".
	TracesExporter string `json:"traces_exporter" yaml:"traces_exporter" validate:"oneof=stdout none"`

	// PrometheusAddr is the /metrics listen address.
	PrometheusAddr string `json:"prometheus_addr" yaml:"prometheus_addr"`

	// ServiceName labels exported telemetry.
	ServiceName string `json:"service_name" yaml:"service_name" validate:"required"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`

	// JSON selects JSON output over text.
	JSON bool `json:"json" yaml:"json"`

	// Dir receives a log file in addition to stderr when set.
	Dir string `json:"dir" yaml:"dir"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:   "https://neodb.social/api",
			Timeout:   15 * time.Second,
			RateLimit: 5,
			UserAgent: "shelfsync/1.0",
		},
		Cache: CacheConfig{
			DataDir:   defaultDataDir(),
			EntityTTL: 12 * time.Hour,
			ListTTL:   24 * time.Hour,
		},
		Listing: ListingConfig{
			PageSize: 20,
		},
		Telemetry: TelemetryConfig{
			MetricsExporter: "none",
			TracesExporter:  "none",
			PrometheusAddr:  ":9464",
			ServiceName:     "shelfsync",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	base, err := os.UserCacheDir()
	if err != nil {
		return ".shelfsync"
	}
	return base + "/shelfsync"
}

var validate = validator.New()

// Load loads configuration with priority: env > file > defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	loadEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	return validate.Struct(c)
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	// Try YAML first, then JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	return nil
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("SHELFSYNC_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("SHELFSYNC_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.Timeout = d
		}
	}
	if v := os.Getenv("SHELFSYNC_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("SHELFSYNC_DATA_DIR"); v != "" {
		cfg.Cache.DataDir = v
	}
	if v := os.Getenv("SHELFSYNC_ENTITY_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.EntityTTL = d
		}
	}
	if v := os.Getenv("SHELFSYNC_LIST_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.ListTTL = d
		}
	}
	if v := os.Getenv("SHELFSYNC_PAGE_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Listing.PageSize = i
		}
	}
	if v := os.Getenv("SHELFSYNC_METRICS_EXPORTER"); v != "" {
		cfg.Telemetry.MetricsExporter = v
	}
	if v := os.Getenv("SHELFSYNC_TRACES_EXPORTER"); v != "" {
		cfg.Telemetry.TracesExporter = v
	}
	if v := os.Getenv("SHELFSYNC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SHELFSYNC_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.JSON = b
		}
	}
}
