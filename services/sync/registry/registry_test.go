// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package registry

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidewaterlabs/shelfsync/services/sync/entity"
)

type fakeController struct {
	id entity.Identity
}

func mustIdentity(t *testing.T, kind entity.Kind, id, scope string) entity.Identity {
	t.Helper()
	identity, err := entity.NewIdentity(kind, id, scope)
	require.NoError(t, err)
	return identity
}

func TestForReturnsSameInstance(t *testing.T) {
	r := New(nil)
	id := mustIdentity(t, entity.KindMark, "item-1", "s1")

	first := For(r, id, func() *fakeController { return &fakeController{id: id} })
	second := For(r, id, func() *fakeController {
		t.Fatal("factory must not run for an existing controller")
		return nil
	})

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.Len())
}

func TestForDistinctIdentities(t *testing.T) {
	r := New(nil)
	a := mustIdentity(t, entity.KindMark, "item-1", "s1")
	b := mustIdentity(t, entity.KindMark, "item-2", "s1")
	// Same id under a different scope is a different entity.
	c := mustIdentity(t, entity.KindMark, "item-1", "s2")

	ca := For(r, a, func() *fakeController { return &fakeController{id: a} })
	cb := For(r, b, func() *fakeController { return &fakeController{id: b} })
	cc := For(r, c, func() *fakeController { return &fakeController{id: c} })

	assert.NotSame(t, ca, cb)
	assert.NotSame(t, ca, cc)
	assert.Equal(t, 3, r.Len())
}

func TestForConcurrentFactoryOnce(t *testing.T) {
	r := New(nil)
	id := mustIdentity(t, entity.KindSocialStatus, "status-1", "s1")

	var calls atomic.Int64
	var wg sync.WaitGroup
	results := make([]*fakeController, 32)
	for i := range results {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = For(r, id, func() *fakeController {
				calls.Add(1)
				return &fakeController{id: id}
			})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load(), "factory should run exactly once")
	for _, got := range results {
		assert.Same(t, results[0], got)
	}
}

func TestLookup(t *testing.T) {
	r := New(nil)
	id := mustIdentity(t, entity.KindCatalogItem, "uuid-1", "s1")

	_, ok := Lookup[*fakeController](r, id)
	assert.False(t, ok)

	created := For(r, id, func() *fakeController { return &fakeController{id: id} })
	found, ok := Lookup[*fakeController](r, id)
	require.True(t, ok)
	assert.Same(t, created, found)
}

func TestRelease(t *testing.T) {
	r := New(nil)
	id := mustIdentity(t, entity.KindMark, "item-1", "s1")

	first := For(r, id, func() *fakeController { return &fakeController{id: id} })
	r.Release(id)
	assert.Equal(t, 0, r.Len())

	// Releasing again is a no-op.
	r.Release(id)

	second := For(r, id, func() *fakeController { return &fakeController{id: id} })
	assert.NotSame(t, first, second, "a released identity gets a fresh controller")
}

func TestReleaseScope(t *testing.T) {
	r := New(nil)
	ids := []entity.Identity{
		mustIdentity(t, entity.KindMark, "item-1", "user-1"),
		mustIdentity(t, entity.KindSocialStatus, "status-1", "user-1"),
		// "user-10" must survive a purge of "user-1": scope matching is
		// exact, never prefix-based.
		mustIdentity(t, entity.KindMark, "item-1", "user-10"),
	}
	for _, id := range ids {
		id := id
		For(r, id, func() *fakeController { return &fakeController{id: id} })
	}

	released := r.ReleaseScope("user-1")
	assert.Equal(t, 2, released)
	assert.Equal(t, 1, r.Len())

	_, ok := Lookup[*fakeController](r, ids[2])
	assert.True(t, ok)
}
