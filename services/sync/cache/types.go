// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"sync/atomic"
	"time"

	"github.com/tidewaterlabs/shelfsync/pkg/logging"
)

// statCounters are the store's internal atomic counters.
type statCounters struct {
	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
	promotions atomic.Int64
	diskErrors atomic.Int64
}

// Stats is a point-in-time snapshot of cache behavior.
type Stats struct {
	// MemoryEntries is the current memory-tier size.
	MemoryEntries int

	// MemoryHits is the number of gets served from memory.
	MemoryHits int64

	// DiskHits is the number of gets served from disk (and promoted).
	DiskHits int64

	// Misses is the number of gets served from neither tier.
	Misses int64

	// Promotions is the number of disk values copied into memory.
	Promotions int64

	// DiskErrors counts disk failures degraded to misses or
	// memory-only writes.
	DiskErrors int64
}

// HitRate returns the overall hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.MemoryHits + s.DiskHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.MemoryHits+s.DiskHits) / float64(total) * 100
}

// Option configures a Store.
type Option func(*Store)

// WithDisk attaches the durable tier.
func WithDisk(disk PersistentStore) Option {
	return func(s *Store) { s.disk = disk }
}

// WithDefaultTTL sets the expiry applied when Put is called with ttl 0.
// The zero default is no expiry.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock substitutes the time source. Tests use this to drive TTL
// expiry deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}
