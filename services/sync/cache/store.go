// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package cache implements the tiered key/value store behind the sync
// engine: an in-process memory tier checked first, and a durable disk
// tier (BadgerDB) checked on miss, with promotion back into memory on a
// disk hit.
//
// The cache is best-effort by contract. Disk failures degrade to a miss
// and are never surfaced; no caller may depend on the cache as a source
// of truth. Writes hit both tiers synchronously, so an acknowledged Put
// is durable.
//
// Keys are namespaced scope-first ("scope/kind/id[/sub]") so tearing
// down a session is a single prefix removal across both tiers.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
)

// ErrNotFound is returned by PersistentStore implementations for a
// missing key. The Store itself never returns it; a miss is (nil, false).
var ErrNotFound = errors.New("cache: key not found")

// PersistentStore is the durable tier behind the memory map.
//
// Implementations must treat a missing key as ErrNotFound, not an
// ordinary error, so the Store can distinguish miss from failure in its
// stats while degrading both to a miss for callers.
//
// Read also reports the entry's absolute expiry, zero for an entry that
// never expires, so promotion into memory cannot outlive the disk copy.
type PersistentStore interface {
	Read(ctx context.Context, key string) ([]byte, time.Time, error)
	Write(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, prefix string) error
}

// memEntry is one memory-tier value. A zero expiresAt never expires.
type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// Store is the two-tier cache.
//
// # Thread Safety
//
// Store is safe for concurrent use. The memory tier is guarded by a
// mutex; the disk tier serializes same-key writes internally. Disk calls
// run outside the mutex so a slow disk never blocks memory hits.
type Store struct {
	mu  sync.Mutex
	mem map[string]memEntry

	disk       PersistentStore
	defaultTTL time.Duration
	now        func() time.Time
	log        *logging.Logger

	stats statCounters
}

// New creates a Store. With no options the store is memory-only, which
// is how tests and anonymous probe sessions run; production passes
// WithDisk around a badger tier.
func New(opts ...Option) *Store {
	s := &Store{
		mem: make(map[string]memEntry),
		now: time.Now,
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached value for key, consulting memory first and the
// disk tier on miss. A disk hit is promoted into memory before
// returning, so the next Get for the same key is served without disk
// access.
//
// Get never fails: disk errors are logged at debug and degrade to a
// miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	start := s.now()

	s.mu.Lock()
	entry, ok := s.mem[key]
	if ok && s.expired(entry) {
		delete(s.mem, key)
		ok = false
	}
	s.mu.Unlock()

	if ok {
		s.stats.memoryHits.Add(1)
		recordHit(ctx, tierMemory, s.now().Sub(start))
		return cloneBytes(entry.value), true
	}

	if s.disk == nil {
		s.stats.misses.Add(1)
		recordMiss(ctx, s.now().Sub(start))
		return nil, false
	}

	value, expiresAt, err := s.disk.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.stats.diskErrors.Add(1)
			s.log.Debug("disk read degraded to miss", "key", key, "error", err)
		}
		s.stats.misses.Add(1)
		recordMiss(ctx, s.now().Sub(start))
		return nil, false
	}

	s.promote(key, value, expiresAt)
	s.stats.diskHits.Add(1)
	s.stats.promotions.Add(1)
	recordHit(ctx, tierDisk, s.now().Sub(start))
	return cloneBytes(value), true
}

// Put writes value under key to both tiers. The call returns once the
// disk tier has acknowledged (or failed; disk failures are swallowed so
// the memory tier still serves the value for this process's lifetime).
//
// ttl of 0 uses the store default; a negative ttl means no expiry
// regardless of the default.
func (s *Store) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	effective := s.effectiveTTL(ttl)

	entry := memEntry{value: cloneBytes(value)}
	if effective > 0 {
		entry.expiresAt = s.now().Add(effective)
	}

	s.mu.Lock()
	s.mem[key] = entry
	s.mu.Unlock()

	if s.disk != nil {
		if err := s.disk.Write(ctx, key, value, effective); err != nil {
			s.stats.diskErrors.Add(1)
			s.log.Warn("disk write failed, value is memory-only", "key", key, "error", err)
		}
	}
	recordPut(ctx)
}

// Remove deletes key from both tiers.
func (s *Store) Remove(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()

	if s.disk != nil {
		if err := s.disk.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			s.stats.diskErrors.Add(1)
			s.log.Debug("disk delete failed", "key", key, "error", err)
		}
	}
}

// RemoveAll deletes every key under scope from both tiers. Used on
// logout and account switch; keys under other scopes are untouched.
func (s *Store) RemoveAll(ctx context.Context, scope string) {
	prefix := ScopePrefix(scope)

	s.mu.Lock()
	for key := range s.mem {
		if strings.HasPrefix(key, prefix) {
			delete(s.mem, key)
		}
	}
	s.mu.Unlock()

	if s.disk != nil {
		if err := s.disk.DeleteAll(ctx, prefix); err != nil {
			s.stats.diskErrors.Add(1)
			s.log.Warn("disk scope purge failed", "scope", scope, "error", err)
		}
	}
	s.log.Info("scope purged", "scope", scope)
}

// Stats returns a snapshot of the store's counters.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	entries := len(s.mem)
	s.mu.Unlock()

	return Stats{
		MemoryEntries: entries,
		MemoryHits:    s.stats.memoryHits.Load(),
		DiskHits:      s.stats.diskHits.Load(),
		Misses:        s.stats.misses.Load(),
		Promotions:    s.stats.promotions.Load(),
		DiskErrors:    s.stats.diskErrors.Load(),
	}
}

// promote inserts a disk-read value into the memory tier, carrying the
// disk entry's absolute expiry so a near-expiry value cannot be served
// from memory past its intended lifetime. A non-expiring disk entry
// falls back to the store default TTL in memory.
func (s *Store) promote(key string, value []byte, expiresAt time.Time) {
	entry := memEntry{value: cloneBytes(value), expiresAt: expiresAt}
	if expiresAt.IsZero() && s.defaultTTL > 0 {
		entry.expiresAt = s.now().Add(s.defaultTTL)
	}
	s.mu.Lock()
	s.mem[key] = entry
	s.mu.Unlock()
}

func (s *Store) expired(e memEntry) bool {
	return !e.expiresAt.IsZero() && s.now().After(e.expiresAt)
}

func (s *Store) effectiveTTL(ttl time.Duration) time.Duration {
	switch {
	case ttl < 0:
		return 0
	case ttl == 0:
		return s.defaultTTL
	default:
		return ttl
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// GetJSON reads and decodes a cached JSON value. Decode failures (a
// schema changed under a stale entry) degrade to a miss.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var out T
	data, ok := s.Get(ctx, key)
	if !ok {
		return out, false
	}
	if err := json.Unmarshal(data, &out); err != nil {
		s.Remove(ctx, key)
		return out, false
	}
	return out, true
}

// PutJSON encodes and writes a JSON value. Encode failures are swallowed
// like any other cache failure.
func PutJSON[T any](ctx context.Context, s *Store, key string, value T, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		s.log.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	s.Put(ctx, key, data, ttl)
}
