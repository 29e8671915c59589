// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package cache

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/safepulse/internal/metrics"
)

// DefaultTTL applies when Options.TTL is not positive.
const DefaultTTL = 5 * time.Minute

const keyPrefix = "prediction:"

// Options configures Open.
type Options struct {
	// Path is the badger directory. Empty opens an in-memory store.
	Path string

	// TTL is the lifetime of each entry.
	TTL time.Duration
}

// PredictionCache stores encoded prediction responses with a TTL.
type PredictionCache struct {
	db     *badger.DB
	ttl    time.Duration
	ownsDB bool
}

// Open opens a badger database for the cache. The returned cache owns the
// database and closes it on Close.
func Open(opts Options) (*PredictionCache, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.Path == "" {
		bopts = bopts.WithInMemory(true)
	}
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for prediction cache: %w", err)
	}
	c := New(db, opts.TTL)
	c.ownsDB = true
	return c, nil
}

// New wraps an open badger database. The caller keeps ownership of db.
func New(db *badger.DB, ttl time.Duration) *PredictionCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PredictionCache{db: db, ttl: ttl}
}

// TTL returns the entry lifetime.
func (c *PredictionCache) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get decodes the entry stored under key into dst. It reports false on a
// miss, an expired entry or an entry that no longer decodes into dst.
func (c *PredictionCache) Get(key string, dst any) bool {
	if c == nil {
		return false
	}

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dst)
		})
	})

	hit := err == nil
	metrics.RecordCacheLookup(hit)
	return hit
}

// Set stores value under key for the cache TTL.
func (c *PredictionCache) Set(key string, value any) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(keyPrefix+key), data).WithTTL(c.ttl)
		return txn.SetEntry(entry)
	})
}

// Delete removes one entry. Missing keys are not an error.
func (c *PredictionCache) Delete(key string) error {
	if c == nil {
		return nil
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + key))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	return err
}

// Invalidate drops every cached prediction.
func (c *PredictionCache) Invalidate() error {
	if c == nil {
		return nil
	}
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("drop prediction cache: %w", err)
	}
	return nil
}

// Close closes the database when the cache opened it.
func (c *PredictionCache) Close() error {
	if c == nil || !c.ownsDB {
		return nil
	}
	return c.db.Close()
}

// GenerateKey builds a cache key from an endpoint name and its request.
// Requests that encode to the same JSON share a key.
func GenerateKey(endpoint string, params any) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", endpoint, params)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", endpoint, hash[:16])
}
