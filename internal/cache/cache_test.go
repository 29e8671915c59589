// SafePulse - Personal Safety Analytics Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/safepulse

package cache

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type routeResult struct {
	Score float64 `json:"score"`
	Level string  `json:"level"`
}

func newTestCache(t *testing.T, ttl time.Duration) *PredictionCache {
	t.Helper()
	c, err := Open(Options{TTL: ttl})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestPredictionCache_SetGet(t *testing.T) {
	c := newTestCache(t, time.Minute)

	want := routeResult{Score: 0.79, Level: "high"}
	if err := c.Set("route-risk:abc", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got routeResult
	if !c.Get("route-risk:abc", &got) {
		t.Fatal("expected hit")
	}
	if got != want {
		t.Errorf("Get = %+v, want %+v", got, want)
	}

	if c.Get("route-risk:missing", &got) {
		t.Error("expected miss for unknown key")
	}
}

func TestPredictionCache_Expiry(t *testing.T) {
	// Badger TTLs have one second resolution.
	c := newTestCache(t, time.Second)
	if err := c.Set("k", routeResult{Score: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(2100 * time.Millisecond)

	var got routeResult
	if c.Get("k", &got) {
		t.Error("expected entry to expire")
	}
}

func TestPredictionCache_Invalidate(t *testing.T) {
	c := newTestCache(t, time.Minute)
	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(k, routeResult{Level: k}); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}
	if err := c.Delete("a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var got routeResult
	if c.Get("a", &got) {
		t.Error("deleted key still present")
	}

	if err := c.Invalidate(); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	for _, k := range []string{"b", "c"} {
		if c.Get(k, &got) {
			t.Errorf("key %s survived invalidation", k)
		}
	}
}

func TestPredictionCache_SharedDB(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open: %v", err)
	}
	defer db.Close()

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("other:key"), []byte("keep"))
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	c := New(db, 0)
	if c.TTL() != DefaultTTL {
		t.Errorf("TTL = %v, want %v", c.TTL(), DefaultTTL)
	}
	if err := c.Set("x", routeResult{}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Invalidate(); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close on borrowed db: %v", err)
	}

	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("other:key"))
		return err
	})
	if err != nil {
		t.Errorf("unrelated key lost or db closed: %v", err)
	}
}

func TestPredictionCache_Nil(t *testing.T) {
	var c *PredictionCache
	var got routeResult
	if c.Get("k", &got) {
		t.Error("nil cache must miss")
	}
	if err := c.Set("k", routeResult{}); err != nil {
		t.Errorf("Set on nil cache: %v", err)
	}
	if err := c.Invalidate(); err != nil {
		t.Errorf("Invalidate on nil cache: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil cache: %v", err)
	}
}

func TestGenerateKey(t *testing.T) {
	type req struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}
	a := GenerateKey("area-risk", req{Lat: 1, Lng: 2})
	b := GenerateKey("area-risk", req{Lat: 1, Lng: 2})
	c := GenerateKey("area-risk", req{Lat: 1, Lng: 3})
	d := GenerateKey("route-risk", req{Lat: 1, Lng: 2})

	if a != b {
		t.Errorf("equal requests produced %q and %q", a, b)
	}
	if a == c || a == d {
		t.Error("distinct requests share a key")
	}
	if len(a) != len("area-risk:")+32 {
		t.Errorf("key %q has unexpected length", a)
	}
}
