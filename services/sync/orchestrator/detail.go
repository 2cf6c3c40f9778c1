// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

// DefaultDetailTTL bounds how long a persisted detail record is served
// without a successful refresh.
const DefaultDetailTTL = 7 * 24 * time.Hour

// DetailSource supplies the record-specific pieces of a single
// read-mostly entity: cache location, fetch request, and how a fresh
// fetch is merged with the held record.
//
// Merge exists for the stub-versus-detail problem: a listing stub must
// not overwrite an already held full record of the same id.
type DetailSource[T any] interface {
	CacheKey() string
	FetchRequest() gateway.Descriptor
	Merge(current, fresh T) T
}

// Detail is the single-record counterpart of Orchestrator: show the
// cached record immediately, always refresh from the network, suppress
// refresh failures while something is displayable.
type Detail[T any] struct {
	source DetailSource[T]
	deps   Deps
	ttl    time.Duration

	mu        sync.Mutex
	value     T
	populated bool
	state     State
	gen       uint64
	lastErr   error
}

// NewDetail creates an idle detail loader for source.
func NewDetail[T any](source DetailSource[T], deps Deps, opts ...Option) *Detail[T] {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	cfg := settings{pageSize: DefaultPageSize, listTTL: DefaultDetailTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Detail[T]{source: source, deps: deps, ttl: cfg.listTTL, state: StateIdle}
}

// Value returns the held record and whether one is populated.
func (d *Detail[T]) Value() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.populated
}

// State returns the display state.
func (d *Detail[T]) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Load populates the record: cache adopt, then network refresh, merged
// through the source so a stub cannot replace held detail. A refresh
// failure surfaces only when nothing is displayable.
func (d *Detail[T]) Load(ctx context.Context) error {
	d.mu.Lock()
	d.gen++
	gen := d.gen
	if d.state != StateLoaded {
		d.state = StateLoading
	}
	d.mu.Unlock()

	key := d.source.CacheKey()
	if cached, ok := cache.GetJSON[T](ctx, d.deps.Cache, key); ok {
		d.mu.Lock()
		if gen == d.gen {
			d.value = d.source.Merge(d.value, cached)
			d.populated = true
			d.state = StateLoaded
		}
		d.mu.Unlock()
	}

	var fresh T
	if err := d.deps.Gateway.Execute(ctx, d.source.FetchRequest(), &fresh); err != nil {
		if gateway.IsCancelled(err) {
			return err
		}
		d.mu.Lock()
		populated := d.populated
		if gen == d.gen && !populated {
			d.state = StateError
			d.lastErr = err
		}
		d.mu.Unlock()
		if populated {
			d.deps.Log.Warn("detail refresh failed, keeping held record",
				"key", key, "class", string(gateway.ClassOf(err)))
			return nil
		}
		return err
	}

	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return gateway.NewError(gateway.ClassCancelled, 0, "load superseded", nil)
	}
	merged := d.source.Merge(d.value, fresh)
	d.value = merged
	d.populated = true
	d.state = StateLoaded
	d.lastErr = nil
	d.mu.Unlock()

	cache.PutJSON(ctx, d.deps.Cache, key, merged, d.ttl)
	return nil
}
