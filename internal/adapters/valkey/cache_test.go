//go:build integration
// +build integration

package valkey_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/samirrijal/sitescout/internal/adapters/valkey"
)

func TestCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("SITESCOUT_CACHE_ADDR")
	if addr == "" {
		t.Skip("SITESCOUT_CACHE_ADDR not set")
	}
	c, err := valkey.New(addr)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "sitescout:test:roundtrip"
	if err := c.Set(ctx, key, []byte{0x00, 0xff, '{'}, 30); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, key)
	if err != nil || string(got) != string([]byte{0x00, 0xff, '{'}) {
		t.Fatalf("get: %v %q", err, got)
	}

	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(ctx, key); !errors.Is(err, valkey.ErrMiss) {
		t.Errorf("expected ErrMiss after delete, got %v", err)
	}
}
