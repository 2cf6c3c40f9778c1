// Copyright (C) 2025 Tidewater Labs (oss@tidewaterlabs.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	dgbadger "github.com/dgraph-io/badger/v4"

	storagebadger "github.com/tidewaterlabs/shelfsync/services/sync/storage/badger"
)

// deleteBatchSize bounds keys deleted per transaction so a large scope
// purge stays under badger's transaction size limit.
const deleteBatchSize = 1000

// BadgerTier adapts a badger database to the PersistentStore interface.
type BadgerTier struct {
	db *storagebadger.DB
}

// NewBadgerTier wraps db as the cache's durable tier. The caller keeps
// ownership of db's lifecycle.
func NewBadgerTier(db *storagebadger.DB) *BadgerTier {
	return &BadgerTier{db: db}
}

// Read implements PersistentStore. Badger stamps TTL entries with an
// absolute unix-second expiry; that is surfaced so the memory tier can
// honor it.
func (t *BadgerTier) Read(ctx context.Context, key string) ([]byte, time.Time, error) {
	var value []byte
	var expiresAt time.Time
	err := t.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		if exp := item.ExpiresAt(); exp > 0 {
			expiresAt = time.Unix(int64(exp), 0)
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, dgbadger.ErrKeyNotFound) {
		return nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("badger read %s: %w", key, err)
	}
	return value, expiresAt, nil
}

// Write implements PersistentStore. A positive ttl expires the entry on
// disk; badger drops it lazily on read and during GC.
func (t *BadgerTier) Write(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return t.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		entry := dgbadger.NewEntry([]byte(key), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Delete implements PersistentStore. Deleting a missing key is not an
// error.
func (t *BadgerTier) Delete(ctx context.Context, key string) error {
	return t.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// DeleteAll implements PersistentStore: removes every key under prefix,
// in batches.
func (t *BadgerTier) DeleteAll(ctx context.Context, prefix string) error {
	p := []byte(prefix)
	for {
		batch, err := t.collectKeys(ctx, p, deleteBatchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		err = t.db.WithTxn(ctx, func(txn *dgbadger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("badger prefix delete %s: %w", prefix, err)
		}
		if len(batch) < deleteBatchSize {
			return nil
		}
	}
}

// collectKeys gathers up to limit keys under prefix. Values are not
// prefetched; only keys are needed.
func (t *BadgerTier) collectKeys(ctx context.Context, prefix []byte, limit int) ([][]byte, error) {
	var keys [][]byte
	err := t.db.WithReadTxn(ctx, func(txn *dgbadger.Txn) error {
		opts := dgbadger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(keys) < limit; it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

var _ PersistentStore = (*BadgerTier)(nil)
