package redis

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestGetReturnsCacheMiss(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	if _, err := client.Get(ctx, "of:missing"); !IsCacheMiss(err) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	if err := client.Set(ctx, "of:present", "value", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	val, err := client.Get(ctx, "of:present")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if val != "value" {
		t.Fatalf("expected stored value, got %q", val)
	}
}

func TestDelByPrefix(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	keys := []string{
		client.ProductListPageKey(0, 10, "created_at", "desc"),
		client.ProductListPageKey(1, 10, "price", "asc"),
		client.ProductListCategoryKey("cat-1"),
	}
	for _, key := range keys {
		if err := client.Set(ctx, key, "payload", time.Hour); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}
	survivor := client.ProductKey("prod-1")
	if err := client.Set(ctx, survivor, "payload", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := client.DelByPrefix(ctx, client.ProductListPrefix()); err != nil {
		t.Fatalf("del by prefix failed: %v", err)
	}
	for _, key := range keys {
		if _, err := client.Get(ctx, key); !IsCacheMiss(err) {
			t.Fatalf("expected %s evicted, got %v", key, err)
		}
	}
	if _, err := client.Get(ctx, survivor); err != nil {
		t.Fatalf("product key should survive listing eviction: %v", err)
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.ProductKey("abc"); got != "of:catalog:product:abc" {
		t.Fatalf("unexpected product key %s", got)
	}
	if got := client.ProductListPageKey(2, 20, "price", "asc"); got != "of:catalog:product_list:active_page_2_size_20_sort_price_asc" {
		t.Fatalf("unexpected page key %s", got)
	}
	if got := client.ProductListCategoryKey("cat-9"); got != "of:catalog:product_list:category_cat-9" {
		t.Fatalf("unexpected category key %s", got)
	}
	if got := client.ProductListPrefix(); got != "of:catalog:product_list:" {
		t.Fatalf("unexpected listing prefix %s", got)
	}
}

type mockCmdable struct {
	data map[string]string
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func (m *mockCmdable) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range m.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}
