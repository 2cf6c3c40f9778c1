// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://neodb.social/api", cfg.Server.BaseURL)
	assert.Equal(t, 20, cfg.Listing.PageSize)
	assert.Equal(t, "none", cfg.Telemetry.MetricsExporter)
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfsync.yaml")
	content := `
server:
  base_url: "https://demo.example/api"
  timeout: 5s
cache:
  entity_ttl: 2h
listing:
  page_size: 50
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://demo.example/api", cfg.Server.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 2*time.Hour, cfg.Cache.EntityTTL)
	assert.Equal(t, 50, cfg.Listing.PageSize)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Unset sections keep their defaults.
	assert.Equal(t, 24*time.Hour, cfg.Cache.ListTTL)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.BaseURL, cfg.Server.BaseURL)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  base_url: \"https://file.example/api\"\n"), 0o600))

	t.Setenv("SHELFSYNC_BASE_URL", "https://env.example/api")
	t.Setenv("SHELFSYNC_PAGE_SIZE", "35")
	t.Setenv("SHELFSYNC_LOG_JSON", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api", cfg.Server.BaseURL)
	assert.Equal(t, 35, cfg.Listing.PageSize)
	assert.True(t, cfg.Logging.JSON)
}

func TestValidationRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Listing.PageSize = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Telemetry.MetricsExporter = "statsd"
	assert.Error(t, cfg.Validate())
}

func TestMalformedFileIsAnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a: mapping"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}
