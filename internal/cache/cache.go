// Package cache keeps rendered public catalog responses in Redis. A nil
// *Cache is valid and behaves as a cache that never hits.
package cache

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"baz-car-admin/internal/event"
)

const (
	pingTimeout  = 2 * time.Second
	purgeTimeout = 5 * time.Second
	scanBatch    = 100
)

var errStaleFill = errors.New("cache generation moved")

type Cache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// New connects to the Redis server at url. An empty url disables caching
// and returns a nil *Cache.
func New(ctx context.Context, url string, prefix string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewWithClient(rdb, prefix, ttl), nil
}

func NewWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "cache"
	}
	return &Cache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key derives a stable key for one request shape.
func (c *Cache) Key(method string, path string, rawQuery string) string {
	sum := sha1.Sum([]byte(strings.ToUpper(method) + ":" + path + "?" + rawQuery))
	return fmt.Sprintf("%s:%x", c.prefix, sum[:])
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}

	payload, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return payload, true
}

func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if !c.Enabled() {
		return
	}

	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		slog.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *Cache) generationKey() string {
	return c.prefix + ":generation"
}

// Generation returns the current purge generation. Callers take it before
// rendering a response and hand it to SetIfGeneration. A negative value
// means the generation could not be read and the response must not be
// stored.
func (c *Cache) Generation(ctx context.Context) int64 {
	if !c.Enabled() {
		return -1
	}

	gen, err := c.rdb.Get(ctx, c.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		slog.Warn("cache generation read failed", "error", err)
		return -1
	}
	return gen
}

// SetIfGeneration stores payload only if no purge happened since gen was
// read, so a response rendered from pre-write data is never cached after
// the write purged it.
func (c *Cache) SetIfGeneration(ctx context.Context, key string, gen int64, payload []byte) bool {
	if !c.Enabled() || gen < 0 {
		return false
	}

	genKey := c.generationKey()
	err := c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != gen {
			return errStaleFill
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return true
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		return false
	default:
		slog.Warn("cache write failed", "key", key, "error", err)
		return false
	}
}

// Purge bumps the generation and deletes every cached response under the
// prefix. It returns how many responses were removed.
func (c *Cache) Purge(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	genKey := c.generationKey()
	if err := c.rdb.Incr(ctx, genKey).Err(); err != nil {
		return 0, fmt.Errorf("bump cache generation: %w", err)
	}

	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, c.prefix+":*", scanBatch).Result()
		if err != nil {
			return removed, fmt.Errorf("scan cache keys: %w", err)
		}

		keys = slices.DeleteFunc(keys, func(k string) bool { return k == genKey })
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete cache keys: %w", err)
			}
			removed += int(n)
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// Run purges the cache whenever a catalog event arrives on bus. Write
// requests purge synchronously before responding; Run is the backstop. It
// returns when ctx is done.
func (c *Cache) Run(ctx context.Context, bus event.Bus) {
	if !c.Enabled() {
		return
	}

	events, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if !e.IsCatalogChange() {
				continue
			}

			purgeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), purgeTimeout)
			n, err := c.Purge(purgeCtx)
			cancel()
			if err != nil {
				slog.Warn("cache purge failed", "event", e.Type, "error", err)
				continue
			}
			slog.Debug("cache purged", "event", e.Type, "keys", n)
		}
	}
}

func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}
