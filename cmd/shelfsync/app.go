// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/config"
	"github.com/tidewaterlabs/shelfsync/services/sync/controller"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
	"github.com/tidewaterlabs/shelfsync/services/sync/orchestrator"
	"github.com/tidewaterlabs/shelfsync/services/sync/registry"
	"github.com/tidewaterlabs/shelfsync/services/sync/session"
	storagebadger "github.com/tidewaterlabs/shelfsync/services/sync/storage/badger"
	"github.com/tidewaterlabs/shelfsync/services/sync/telemetry"
)

// app holds the wired service graph for one CLI invocation.
type app struct {
	cfg   config.Config
	log   *logging.Logger
	db    *storagebadger.DB
	store *cache.Store
	gw    gateway.Gateway
	reg   *registry.Registry
	sess  session.Context

	telemetryShutdown func(context.Context) error
}

// newApp builds the service graph: config, logging, telemetry, disk
// tier, cache, gateway, registry, session.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	log := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		Service: "shelfsync",
		JSON:    cfg.Logging.JSON,
		LogDir:  cfg.Logging.Dir,
	})

	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Environment:    "cli",
		TraceExporter:  cfg.Telemetry.TracesExporter,
		MetricExporter: cfg.Telemetry.MetricsExporter,
	})
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	sess := buildSession()

	var db *storagebadger.DB
	var opts []cache.Option
	if cfg.Cache.DataDir != "" {
		if err := os.MkdirAll(cfg.Cache.DataDir, 0o700); err != nil {
			log.Close()
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dbCfg := storagebadger.DefaultConfig(filepath.Join(cfg.Cache.DataDir, "cache"))
		dbCfg.SyncWrites = cfg.Cache.SyncWrites
		dbCfg.Logger = log.Slog()
		db, err = storagebadger.Open(dbCfg)
		if err != nil {
			// The disk tier is an optimization; run memory-only when it
			// cannot open, e.g. another process holds the lock.
			log.Warn("disk cache unavailable, running memory-only", "error", err)
			db = nil
		} else {
			opts = append(opts, cache.WithDisk(cache.NewBadgerTier(db)))
		}
	}
	opts = append(opts, cache.WithDefaultTTL(cfg.Cache.EntityTTL), cache.WithLogger(log))
	store := cache.New(opts...)

	gw := gateway.NewClient(cfg.Server.BaseURL, sess,
		gateway.WithTimeout(cfg.Server.Timeout),
		gateway.WithRateLimit(cfg.Server.RateLimit),
		gateway.WithUserAgent(cfg.Server.UserAgent),
		gateway.WithLogger(log),
	)

	return &app{
		cfg:               cfg,
		log:               log,
		db:                db,
		store:             store,
		gw:                gw,
		reg:               registry.New(log),
		sess:              sess,
		telemetryShutdown: shutdown,
	}, nil
}

// buildSession resolves the account scope and token from flags with
// environment fallback. Without a token the session is anonymous: reads
// of public data work, mutations fail fast.
func buildSession() session.Context {
	token := authToken
	if token == "" {
		token = os.Getenv("SHELFSYNC_TOKEN")
	}
	scope := accountID
	if scope == "" {
		scope = os.Getenv("SHELFSYNC_ACCOUNT")
	}
	if scope == "" {
		scope = "default"
	}
	if token == "" {
		return session.Anonymous(scope)
	}
	return session.NewAccount(scope, token)
}

func (a *app) Close(ctx context.Context) {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("closing disk cache", "error", err)
		}
	}
	if a.telemetryShutdown != nil {
		if err := a.telemetryShutdown(ctx); err != nil {
			a.log.Warn("telemetry shutdown", "error", err)
		}
	}
	a.log.Close()
}

func (a *app) controllerDeps() controller.Deps {
	return controller.Deps{
		Gateway: a.gw,
		Cache:   a.store,
		Session: a.sess,
		Log:     a.log,
	}
}

func (a *app) orchestratorDeps() orchestrator.Deps {
	return orchestrator.Deps{
		Gateway: a.gw,
		Cache:   a.store,
		Log:     a.log,
	}
}
