// Package cache provides an optional Redis-backed result cache for analysis
// responses. Payloads are zstd-compressed JSON. When no Redis URL is
// configured the cache degrades to a no-op and every lookup is a miss.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/redis/go-redis/v9"

	"github.com/guiude/chess-analyzer/internal/obslog"
	"go.uber.org/zap"
)

const keyPrefix = "analysis:"

// Cache stores compressed analysis results in Redis with a TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// New connects to Redis at redisURL and returns a ready cache. An empty URL
// yields a disabled cache whose operations are cheap no-ops.
func New(redisURL string, ttl time.Duration) (*Cache, error) {
	if strings.TrimSpace(redisURL) == "" {
		return &Cache{}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl, enc: enc, dec: dec}, nil
}

// Enabled reports whether a Redis backend is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Key builds the cache key for one analysis request. Renderer identifies the
// explanation path (template or llm) so the two never share entries.
func Key(fen string, depth, lines int, lang, renderer string) string {
	return fmt.Sprintf("%s%s|%d|%d|%s|%s", keyPrefix, fen, depth, lines, lang, renderer)
}

// Get returns the decompressed payload for key, or ok=false on a miss.
// Backend errors are logged and reported as misses so a flaky Redis never
// fails an analysis request.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			obslog.L().Warn("cache get failed", zap.Error(err))
		}
		return nil, false
	}
	out, err := c.dec.DecodeAll(raw, nil)
	if err != nil {
		obslog.L().Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return out, true
}

// Set compresses and stores payload under key with the configured TTL.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if !c.Enabled() {
		return
	}
	compressed := c.enc.EncodeAll(payload, nil)
	if err := c.rdb.Set(ctx, key, compressed, c.ttl).Err(); err != nil {
		obslog.L().Warn("cache set failed", zap.Error(err))
	}
}

// Close releases the Redis connection and codec resources.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	c.enc.Close()
	c.dec.Close()
	return c.rdb.Close()
}
