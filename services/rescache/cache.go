package rescache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cinedex/internal/database"
)

// Cache wraps remote fetches: a producer's JSON-encoded result is stored under
// a request fingerprint and reused until the caller-supplied TTL elapses.
// Freshness is always the caller's decision; the cache itself never expires
// entries, it only records when they were produced.
type Cache struct {
	repo *database.RescacheRepository
	mem  *gocache.Cache
	log  *slog.Logger
}

type entry struct {
	raw string
	ts  time.Time
}

// New creates a response cache over the given durable repository.
func New(repo *database.RescacheRepository) *Cache {
	return &Cache{
		repo: repo,
		mem:  gocache.New(30*time.Minute, 10*time.Minute),
		log:  slog.Default().With("component", "rescache"),
	}
}

// Key builds a stable fingerprint from the identifying parts of a request.
func Key(parts ...string) string {
	h := sha1.Sum([]byte(strings.Join(parts, ":")))
	return hex.EncodeToString(h[:])
}

// Get unmarshals the cached value for key into out if it is younger than ttl;
// otherwise it invokes produce, stores the result, and unmarshals that. A ttl
// of zero always refetches. When produce fails and any cached value exists,
// the stale value is served instead of the error.
func (c *Cache) Get(ctx context.Context, key string, ttl time.Duration, out any, produce func(ctx context.Context) (any, error)) error {
	cached, ok := c.lookup(key)
	if ok && ttl > 0 && time.Since(cached.ts) <= ttl {
		return json.Unmarshal([]byte(cached.raw), out)
	}

	value, err := produce(ctx)
	if err != nil {
		if ok {
			c.log.Warn("producer failed, serving stale response", "key", key, "age", time.Since(cached.ts), "error", err)
			return json.Unmarshal([]byte(cached.raw), out)
		}
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cached value: %w", err)
	}
	now := time.Now().UTC()
	if err := c.repo.Set(key, string(raw)); err != nil {
		// Durable tier failure should not fail the request.
		c.log.Warn("failed to persist cached response", "key", key, "error", err)
	}
	c.mem.Set(key, entry{raw: string(raw), ts: now}, gocache.DefaultExpiration)

	return json.Unmarshal(raw, out)
}

// Timestamp returns when key was last produced; the zero time when unknown.
// The aggregation engine compares this with the remote activity counter.
func (c *Cache) Timestamp(key string) time.Time {
	if cached, ok := c.lookup(key); ok {
		return cached.ts
	}
	return time.Time{}
}

func (c *Cache) lookup(key string) (entry, bool) {
	if v, ok := c.mem.Get(key); ok {
		return v.(entry), true
	}
	raw, ts, ok, err := c.repo.Get(key)
	if err != nil {
		c.log.Warn("response cache read failed", "key", key, "error", err)
		return entry{}, false
	}
	if !ok {
		return entry{}, false
	}
	e := entry{raw: raw, ts: ts}
	c.mem.Set(key, e, gocache.DefaultExpiration)
	return e, true
}
