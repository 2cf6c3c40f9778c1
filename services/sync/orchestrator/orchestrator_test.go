// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewaterlabs/shelfsync/services/sync/cache"
	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
	"github.com/tidewaterlabs/shelfsync/services/sync/gateway"
)

type fakeGateway struct {
	mu      sync.Mutex
	calls   []gateway.Descriptor
	handler func(req gateway.Descriptor) (any, error)
}

func (f *fakeGateway) Execute(ctx context.Context, req gateway.Descriptor, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return gateway.NewError(gateway.ClassCancelled, 0, "", err)
	}
	resp, err := f.handler(req)
	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func marksPage(page, total int, ids ...string) entity.Page[entity.Mark] {
	out := entity.Page[entity.Mark]{PageIndex: page, TotalPages: total}
	for _, id := range ids {
		out.Items = append(out.Items, entity.Mark{ItemID: id, Shelf: entity.ShelfInProgress})
	}
	return out
}

func markIDs(marks []entity.Mark) []string {
	out := make([]string, len(marks))
	for i, m := range marks {
		out[i] = m.ItemID
	}
	return out
}

func rangeIDs(from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("item-%03d", i))
	}
	return out
}

func testDeps(gw gateway.Gateway) Deps {
	return Deps{Gateway: gw, Cache: cache.New()}
}

func TestLoadPageCacheThenNetwork(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(nil)
	key := cache.ListKey("user-1", "shelf", "progress")
	cache.PutJSON(ctx, deps.Cache, key, marksPage(1, 1, "stale-a", "stale-b"), 0)

	gw := &fakeGateway{handler: func(gateway.Descriptor) (any, error) {
		return marksPage(1, 1, "fresh-a", "fresh-b", "fresh-c"), nil
	}}
	deps.Gateway = gw
	o := NewShelf("user-1", entity.ShelfInProgress, deps)

	require.NoError(t, o.LoadPage(ctx, 1, false))

	assert.Equal(t, []string{"fresh-a", "fresh-b", "fresh-c"}, markIDs(o.Items()))
	assert.Equal(t, StateLoaded, o.State())

	// The fresh page was written through.
	got, ok := cache.GetJSON[entity.Page[entity.Mark]](ctx, deps.Cache, key)
	require.True(t, ok)
	assert.Equal(t, []string{"fresh-a", "fresh-b", "fresh-c"}, markIDs(got.Items))
}

func TestLoadPageCacheVisibleBeforeNetworkResolves(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(nil)
	key := cache.ListKey("user-1", "shelf", "progress")
	cache.PutJSON(ctx, deps.Cache, key, marksPage(1, 1, "cached-a"), 0)

	release := make(chan struct{})
	gw := &fakeGateway{handler: func(gateway.Descriptor) (any, error) {
		<-release
		return marksPage(1, 1, "fresh-a"), nil
	}}
	deps.Gateway = gw
	o := NewShelf("user-1", entity.ShelfInProgress, deps)

	done := make(chan error, 1)
	go func() { done <- o.LoadPage(ctx, 1, false) }()

	// The cached page is displayable while the fetch is still parked.
	require.Eventually(t, func() bool {
		return o.State() == StateLoaded && len(o.Items()) == 1
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"cached-a"}, markIDs(o.Items()))

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"fresh-a"}, markIDs(o.Items()))
}

func TestAppendDeduplicatesOverlap(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		switch req.Query.Get("page") {
		case "1":
			return marksPage(1, 2, rangeIDs(1, 20)...), nil
		default:
			// The listing shifted: page 2 overlaps the tail of page 1.
			return marksPage(2, 2, rangeIDs(18, 37)...), nil
		}
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw))

	require.NoError(t, o.LoadPage(ctx, 1, false))
	require.NoError(t, o.LoadPage(ctx, 2, false))

	ids := markIDs(o.Items())
	assert.Len(t, ids, 37, "overlapping ids are kept first-seen only")
	assert.Equal(t, rangeIDs(1, 37), ids)
	assert.Equal(t, 2, o.TotalPages())
}

func TestFailureSuppressedWhenDisplayable(t *testing.T) {
	ctx := context.Background()
	deps := testDeps(nil)
	key := cache.ListKey("user-1", "shelf", "progress")
	cache.PutJSON(ctx, deps.Cache, key, marksPage(1, 1, "cached-a"), 0)

	gw := &fakeGateway{handler: func(gateway.Descriptor) (any, error) {
		return nil, gateway.NewError(gateway.ClassNetworkUnavailable, 0, "", nil)
	}}
	deps.Gateway = gw
	o := NewShelf("user-1", entity.ShelfInProgress, deps)

	require.NoError(t, o.LoadPage(ctx, 1, false), "stale-but-present data suppresses the error")
	assert.Equal(t, []string{"cached-a"}, markIDs(o.Items()))
	assert.Equal(t, StateLoaded, o.State())
	assert.NoError(t, o.Err())
}

func TestFailureSurfacedWhenNothingToShow(t *testing.T) {
	gw := &fakeGateway{handler: func(gateway.Descriptor) (any, error) {
		return nil, gateway.NewError(gateway.ClassTimeout, 0, "", nil)
	}}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw))

	err := o.LoadPage(context.Background(), 1, false)
	assert.ErrorIs(t, err, gateway.ErrTimeout)
	assert.Equal(t, StateError, o.State())
	assert.ErrorIs(t, o.Err(), gateway.ErrTimeout)
	assert.Empty(t, o.Items())
}

func TestRefreshResetsAccumulation(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		if req.Query.Get("page") == "2" {
			return marksPage(2, 2, "b1"), nil
		}
		return marksPage(1, 2, "a1", "a2"), nil
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw))

	require.NoError(t, o.LoadPage(ctx, 1, false))
	require.NoError(t, o.LoadPage(ctx, 2, false))
	require.Len(t, o.Items(), 3)

	require.NoError(t, o.LoadPage(ctx, 5, true), "refresh forces page 1 regardless of the requested page")
	assert.Equal(t, []string{"a1", "a2"}, markIDs(o.Items()))
}

func TestLoadNextGuards(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		switch req.Query.Get("page") {
		case "1":
			return marksPage(1, 3, rangeIDs(1, 4)...), nil
		default:
			t.Fatalf("unexpected page request %q", req.Query.Get("page"))
			return nil, nil
		}
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw), WithPageSize(20))

	require.NoError(t, o.LoadPage(ctx, 1, false))
	require.Len(t, o.Items(), 4)

	// A short page means the listing ended early; no next fetch.
	require.NoError(t, o.LoadNext(ctx))
	assert.Equal(t, 1, gw.callCount())
}

func TestLoadNextAdvancesThroughFullPages(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		switch req.Query.Get("page") {
		case "1":
			return marksPage(1, 2, rangeIDs(1, 3)...), nil
		case "2":
			return marksPage(2, 2, rangeIDs(4, 5)...), nil
		default:
			t.Fatalf("unexpected page request %q", req.Query.Get("page"))
			return nil, nil
		}
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw), WithPageSize(3))

	require.NoError(t, o.LoadNext(ctx), "first LoadNext behaves as a page-1 load")
	require.NoError(t, o.LoadNext(ctx))
	assert.Equal(t, rangeIDs(1, 5), markIDs(o.Items()))

	// Past the last page: no-op.
	require.NoError(t, o.LoadNext(ctx))
	assert.Equal(t, 2, gw.callCount())
}

func TestLoadNextAdvancesAfterOverlap(t *testing.T) {
	ctx := context.Background()
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		switch req.Query.Get("page") {
		case "1":
			return marksPage(1, 3, rangeIDs(1, 20)...), nil
		case "2":
			// The listing shifted: page 2 re-serves the tail of page 1.
			return marksPage(2, 3, rangeIDs(18, 37)...), nil
		case "3":
			return marksPage(3, 3, rangeIDs(38, 45)...), nil
		default:
			t.Fatalf("unexpected page request %q", req.Query.Get("page"))
			return nil, nil
		}
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw))

	require.NoError(t, o.LoadPage(ctx, 1, false))
	require.NoError(t, o.LoadNext(ctx))
	require.Len(t, o.Items(), 37, "dedup shrinks the accumulation below two full pages")

	// Both pages came back full, so the overlap must not read as the
	// listing having ended: page 3 is still reachable.
	require.NoError(t, o.LoadNext(ctx))
	assert.Equal(t, rangeIDs(1, 45), markIDs(o.Items()))
	assert.Equal(t, 3, gw.callCount())

	// Past the last page: done.
	require.NoError(t, o.LoadNext(ctx))
	assert.Equal(t, 3, gw.callCount())
}

func TestSupersededRefreshDiscarded(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	var mu sync.Mutex
	calls := 0
	gw := &fakeGateway{}
	gw.handler = func(req gateway.Descriptor) (any, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			<-release
			return marksPage(1, 1, "slow-a"), nil
		}
		return marksPage(1, 1, "fresh-a"), nil
	}
	o := NewShelf("user-1", entity.ShelfInProgress, testDeps(gw))

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.LoadPage(ctx, 1, true) }()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 1
	}, time.Second, time.Millisecond)

	require.NoError(t, o.LoadPage(ctx, 1, true))
	assert.Equal(t, []string{"fresh-a"}, markIDs(o.Items()))

	close(release)
	err := <-firstDone
	assert.True(t, gateway.IsCancelled(err), "superseded refresh must report cancelled, got %v", err)
	assert.Equal(t, []string{"fresh-a"}, markIDs(o.Items()), "stale completion must not clobber newer state")
}
