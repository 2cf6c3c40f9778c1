// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package orchestrator implements stale-while-revalidate loading for
// read-mostly data: paginated listings and single detail records.
//
// There is no field-level mutation here, only replacement by a fresher
// snapshot, so the full controller machinery is unnecessary. Cached data
// is shown synchronously and a network refresh always follows, so the
// cache can never go stale forever.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

// DefaultPageSize matches the server's listing page size.
const DefaultPageSize = 20

// DefaultListTTL bounds how long a persisted page 1 is served without a
// successful refresh.
const DefaultListTTL = 24 * time.Hour

// State is the orchestrator display state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateLoaded  State = "loaded"
	StateError   State = "error"
)

// Source supplies the listing-specific pieces: where page 1 is cached,
// how a page is requested, and how items are identified for de-dup.
type Source[T any] interface {
	CacheKey() string
	PageRequest(page int) gateway.Descriptor
	ItemID(T) string
}

// Deps are the injected collaborators.
type Deps struct {
	Gateway gateway.Gateway
	Cache   *cache.Store
	Log     *logging.Logger
}

// Option configures an Orchestrator.
type Option func(*settings)

type settings struct {
	pageSize int
	listTTL  time.Duration
}

// WithPageSize overrides the expected server page size used by the
// LoadNext guard.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithListTTL overrides the TTL of the persisted first page.
func WithListTTL(d time.Duration) Option {
	return func(s *settings) { s.listTTL = d }
}

// Orchestrator accumulates the pages of one listing.
//
// Items are de-duplicated first-seen by id because network pagination
// can overlap when the listing shifts under the client. A generation
// counter makes a superseded refresh unable to clobber newer state, and
// identical in-flight page fetches are collapsed through singleflight.
type Orchestrator[T any] struct {
	source Source[T]
	deps   Deps
	cfg    settings

	group singleflight.Group

	mu          sync.Mutex
	items       []T
	seen        map[string]struct{}
	state       State
	totalPages  int
	loadedPages int
	received    int // items the server returned across loaded pages, pre-dedup
	inflight    bool
	gen         uint64
	lastErr     error
}

// New creates an idle orchestrator for source.
func New[T any](source Source[T], deps Deps, opts ...Option) *Orchestrator[T] {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	cfg := settings{pageSize: DefaultPageSize, listTTL: DefaultListTTL}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Orchestrator[T]{
		source: source,
		deps:   deps,
		cfg:    cfg,
		seen:   make(map[string]struct{}),
		state:  StateIdle,
	}
}

// Items returns the accumulated items in display order. The returned
// slice is the caller's; its elements are shared and must be treated as
// read-only.
func (o *Orchestrator[T]) Items() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]T(nil), o.items...)
}

// State returns the display state.
func (o *Orchestrator[T]) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Err returns the error behind StateError, nil otherwise.
func (o *Orchestrator[T]) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateError {
		return nil
	}
	return o.lastErr
}

// TotalPages returns the server's last reported page count, 0 when
// unknown.
func (o *Orchestrator[T]) TotalPages() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.totalPages
}

// LoadPage loads one page of the listing.
//
// refresh resets pagination to page 1 and discards accumulated items.
// A non-refresh page-1 load consults the cache first and exposes a hit
// synchronously, then refreshes from the network regardless. A network
// failure is suppressed when anything is already displayable; it only
// surfaces when there is genuinely nothing to show.
func (o *Orchestrator[T]) LoadPage(ctx context.Context, page int, refresh bool) error {
	if page < 1 {
		page = 1
	}

	o.mu.Lock()
	if refresh {
		page = 1
		o.items = nil
		o.seen = make(map[string]struct{})
		o.totalPages = 0
		o.loadedPages = 0
		o.received = 0
	}
	o.gen++
	gen := o.gen
	o.inflight = true
	if o.state != StateLoaded {
		o.state = StateLoading
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		if gen == o.gen {
			o.inflight = false
		}
		o.mu.Unlock()
	}()

	key := o.source.CacheKey()
	if !refresh && page == 1 {
		if cached, ok := cache.GetJSON[entity.Page[T]](ctx, o.deps.Cache, key); ok {
			o.mu.Lock()
			if gen == o.gen {
				o.replaceLocked(cached.Items)
				if cached.TotalPages > 0 {
					o.totalPages = cached.TotalPages
				}
				o.loadedPages = 1
				o.received = len(cached.Items)
				o.state = StateLoaded
			}
			o.mu.Unlock()
		}
	}

	fetch := func() (any, error) {
		var resp entity.Page[T]
		if err := o.deps.Gateway.Execute(ctx, o.source.PageRequest(page), &resp); err != nil {
			return entity.Page[T]{}, err
		}
		return resp, nil
	}

	// Identical non-refresh fetches collapse into one network call. A
	// refresh always issues its own call: it supersedes whatever is in
	// flight and must not adopt that older call's result.
	var result any
	var err error
	if refresh {
		result, err = fetch()
	} else {
		result, err, _ = o.group.Do(fmt.Sprintf("%s#%d", key, page), fetch)
	}
	if err != nil {
		if gateway.IsCancelled(err) {
			return err
		}
		o.mu.Lock()
		displayable := len(o.items) > 0
		if gen == o.gen && !displayable {
			o.state = StateError
			o.lastErr = err
		}
		o.mu.Unlock()
		if displayable {
			o.deps.Log.Warn("page load failed, keeping displayed items",
				"key", key, "page", page, "class", string(gateway.ClassOf(err)))
			return nil
		}
		return err
	}
	resp := result.(entity.Page[T])

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()
		return gateway.NewError(gateway.ClassCancelled, 0, "load superseded", nil)
	}
	if page == 1 {
		o.replaceLocked(resp.Items)
		o.loadedPages = 1
		o.received = len(resp.Items)
	} else {
		o.appendLocked(resp.Items)
		if page > o.loadedPages {
			o.loadedPages = page
			o.received += len(resp.Items)
		}
	}
	if resp.TotalPages > 0 {
		o.totalPages = resp.TotalPages
	}
	o.state = StateLoaded
	o.lastErr = nil
	o.mu.Unlock()

	// Only page 1 is persisted; later pages are memory-lifetime.
	if page == 1 {
		cache.PutJSON(ctx, o.deps.Cache, key, resp, o.cfg.listTTL)
	}
	return nil
}

// LoadNext fetches the page after the last loaded one. Overlapping
// scrolled-near-bottom triggers collapse: the call is a no-op while a
// load is in flight, past the last page, or when the last page came back
// short, which means the listing ended early. Short is judged on the
// count the server returned, not the de-duplicated accumulation, since
// overlapping pages shrink the latter without ending the listing.
func (o *Orchestrator[T]) LoadNext(ctx context.Context) error {
	o.mu.Lock()
	switch {
	case o.inflight:
		o.mu.Unlock()
		return nil
	case o.loadedPages == 0:
		o.mu.Unlock()
		return o.LoadPage(ctx, 1, false)
	case o.totalPages > 0 && o.loadedPages >= o.totalPages:
		o.mu.Unlock()
		return nil
	case o.received < o.loadedPages*o.cfg.pageSize:
		o.mu.Unlock()
		return nil
	}
	next := o.loadedPages + 1
	o.mu.Unlock()
	return o.LoadPage(ctx, next, false)
}

// replaceLocked swaps in items, rebuilding the de-dup index. Caller
// holds mu.
func (o *Orchestrator[T]) replaceLocked(items []T) {
	o.items = nil
	o.seen = make(map[string]struct{})
	o.appendLocked(items)
}

// appendLocked appends items, keeping the first-seen occurrence of each
// id. Caller holds mu.
func (o *Orchestrator[T]) appendLocked(items []T) {
	for _, item := range items {
		id := o.source.ItemID(item)
		if _, dup := o.seen[id]; dup {
			continue
		}
		o.seen[id] = struct{}{}
		o.items = append(o.items, item)
	}
}
