package cache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	c, err := New("redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	key := Key("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 20, 3, "en", "template")
	payload := []byte(`{"best_moves":[{"rank":1,"move_uci":"e2e4"}]}`)

	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set(ctx, key, payload)
	got, ok := c.Get(ctx, key)
	if !ok {
		t.Fatalf("expected hit after set")
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch: %q", got)
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()
	key := Key("8/8/8/8/8/8/8/K6k w - - 0 1", 12, 1, "pt", "llm")
	c.Set(ctx, key, []byte("x"))
	mr.FastForward(2 * time.Minute)
	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected miss after TTL expiry")
	}
}

func TestCacheDisabledWithoutURL(t *testing.T) {
	c, err := New("", time.Minute)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Enabled() {
		t.Fatalf("expected disabled cache")
	}
	ctx := context.Background()
	c.Set(ctx, "k", []byte("v"))
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("disabled cache must always miss")
	}
}

func TestKeySeparatesRenderers(t *testing.T) {
	a := Key("fen", 20, 3, "en", "template")
	b := Key("fen", 20, 3, "en", "llm")
	if a == b {
		t.Fatalf("renderer must be part of the key")
	}
}
