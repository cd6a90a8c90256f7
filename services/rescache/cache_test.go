package rescache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cinedex/internal/database"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(database.NewRescacheRepository(db.Connection()))
}

func TestGetProducesOnceWithinTTL(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	produce := func(ctx context.Context) (any, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	var got []string
	for i := 0; i < 3; i++ {
		if err := c.Get(context.Background(), Key("list", "trending"), time.Hour, &got, produce); err != nil {
			t.Fatalf("Get failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected a single producer call, got %d", calls)
	}
	if len(got) != 2 || got[0] != "a" {
		t.Errorf("unexpected cached value %v", got)
	}
}

func TestZeroTTLForcesRefetch(t *testing.T) {
	c := newTestCache(t)
	calls := 0
	produce := func(ctx context.Context) (any, error) {
		calls++
		return calls, nil
	}

	var got int
	if err := c.Get(context.Background(), Key("k"), time.Hour, &got, produce); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if err := c.Get(context.Background(), Key("k"), 0, &got, produce); err != nil {
		t.Fatalf("Get with zero ttl failed: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected refetch on zero ttl, got %d calls", calls)
	}
	if got != 2 {
		t.Errorf("expected refreshed value 2, got %d", got)
	}
}

func TestStaleServedWhenProducerFails(t *testing.T) {
	c := newTestCache(t)
	key := Key("flaky")

	var got string
	err := c.Get(context.Background(), key, time.Hour, &got, func(ctx context.Context) (any, error) {
		return "fresh", nil
	})
	if err != nil {
		t.Fatalf("seed Get failed: %v", err)
	}

	got = ""
	err = c.Get(context.Background(), key, 0, &got, func(ctx context.Context) (any, error) {
		return nil, errors.New("upstream down")
	})
	if err != nil {
		t.Fatalf("expected stale fallback, got error: %v", err)
	}
	if got != "fresh" {
		t.Errorf("expected stale value, got %q", got)
	}
}

func TestProducerFailureWithoutCachePropagates(t *testing.T) {
	c := newTestCache(t)

	var got string
	err := c.Get(context.Background(), Key("missing"), time.Hour, &got, func(ctx context.Context) (any, error) {
		return nil, errors.New("upstream down")
	})
	if err == nil {
		t.Fatal("expected error when nothing is cached")
	}
}

func TestTimestampTracksProduction(t *testing.T) {
	c := newTestCache(t)
	key := Key("stamped")

	if !c.Timestamp(key).IsZero() {
		t.Error("expected zero timestamp before production")
	}

	var got string
	before := time.Now().Add(-time.Second)
	if err := c.Get(context.Background(), key, time.Hour, &got, func(ctx context.Context) (any, error) {
		return "v", nil
	}); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	ts := c.Timestamp(key)
	if ts.Before(before) {
		t.Errorf("expected timestamp after %v, got %v", before, ts)
	}
}

func TestKeyStability(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Error("expected identical keys for identical parts")
	}
	if Key("a", "b") == Key("a", "c") {
		t.Error("expected different keys for different parts")
	}
}
