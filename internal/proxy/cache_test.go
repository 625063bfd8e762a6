package proxy

import (
	"context"
	"os"
	"testing"
	"time"

	"chartrace/internal/marketdata"

	"github.com/redis/go-redis/v9"
)

func TestCacheKey(t *testing.T) {
	a := CacheKey("aapl", marketdata.ChartOptions{})
	b := CacheKey("AAPL", marketdata.ChartOptions{StartDate: marketdata.DefaultStartDate, EndDate: marketdata.DefaultEndDate})
	if a != b {
		t.Errorf("CacheKey defaults differ: %q vs %q", a, b)
	}
	if c := CacheKey("AAPL", marketdata.ChartOptions{StartDate: "2023-01-01"}); c == a {
		t.Error("different ranges share a key")
	}
}

func TestInMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss on empty cache")
	}

	res := &marketdata.ChartResult{Meta: marketdata.ChartMeta{Currency: "USD"}}
	if err := c.Set(ctx, "k", res); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || got != res {
		t.Fatalf("Get = %v, %v, %v", got, ok, err)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	now = now.Add(time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("entry should expire after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len after expiry = %d, want 0", c.Len())
	}

	_ = c.Set(ctx, "other", res)
	if _, exists := c.entries["k"]; exists {
		t.Error("expired entry not swept on write")
	}
}

// TestRedisCache runs against a real server when CHARTRACE_TEST_REDIS_ADDR is set.
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("CHARTRACE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CHARTRACE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	c := NewRedisCache(client, time.Minute)
	key := "chartrace-test:" + t.Name()
	defer client.Del(ctx, key)

	if _, ok, err := c.Get(ctx, key); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	want := &marketdata.ChartResult{Quotes: []marketdata.Quote{{Date: "2023-01-03", Close: 125.07}}}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok || len(got.Quotes) != 1 || got.Quotes[0] != want.Quotes[0] {
		t.Errorf("Get = %+v, %v, %v", got, ok, err)
	}
	if ttl := client.TTL(ctx, key).Val(); ttl <= 0 || ttl > time.Minute {
		t.Errorf("ttl = %v", ttl)
	}
}

func TestRedisCache_unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
	defer client.Close()

	c := NewRedisCache(client, 0)
	if _, _, err := c.Get(context.Background(), "k"); err == nil {
		t.Error("expected error from unreachable redis")
	}
}
