// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storagebadger "github.com/tidewaterlabs/shelfsync/services/sync/storage/badger"
)

func newTestTier(t *testing.T) *BadgerTier {
	t.Helper()
	db, err := storagebadger.Open(storagebadger.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBadgerTier(db)
}

func TestBadgerTierRoundTrip(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	require.NoError(t, tier.Write(ctx, "s1/mark/1", []byte("v"), 0))

	got, expiresAt, err := tier.Read(ctx, "s1/mark/1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.True(t, expiresAt.IsZero(), "a TTL-less entry reports no expiry")
}

func TestBadgerTierMissingKey(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	_, _, err := tier.Read(ctx, "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBadgerTierDelete(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	require.NoError(t, tier.Write(ctx, "k", []byte("v"), 0))
	require.NoError(t, tier.Delete(ctx, "k"))

	_, _, err := tier.Read(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, tier.Delete(ctx, "k"))
}

func TestBadgerTierDeleteAllPrefix(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	// More keys than one delete batch, to exercise batching.
	for i := 0; i < deleteBatchSize+10; i++ {
		key := fmt.Sprintf("session-a/mark/%04d", i)
		require.NoError(t, tier.Write(ctx, key, []byte("a"), 0))
	}
	require.NoError(t, tier.Write(ctx, "session-b/mark/0001", []byte("b"), 0))

	require.NoError(t, tier.DeleteAll(ctx, "session-a/"))

	_, _, err := tier.Read(ctx, "session-a/mark/0000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = tier.Read(ctx, fmt.Sprintf("session-a/mark/%04d", deleteBatchSize+9))
	assert.ErrorIs(t, err, ErrNotFound)

	got, _, err := tier.Read(ctx, "session-b/mark/0001")
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), got)
}

func TestBadgerTierTTL(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	require.NoError(t, tier.Write(ctx, "short", []byte("v"), time.Hour))

	got, expiresAt, err := tier.Read(ctx, "short")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.False(t, expiresAt.IsZero(), "a TTL entry surfaces its expiry")
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	require.NoError(t, tier.Write(ctx, "gone", []byte("v"), 50*time.Millisecond))
	time.Sleep(80 * time.Millisecond)
	_, _, err = tier.Read(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreWithBadgerTier(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)
	store := New(WithDisk(tier))

	store.Put(ctx, "s1/item/9", []byte("detail"), 0)

	// Fresh memory tier over the same disk: promotion path end to end.
	store = New(WithDisk(tier))
	got, ok := store.Get(ctx, "s1/item/9")
	require.True(t, ok)
	assert.Equal(t, []byte("detail"), got)
}
