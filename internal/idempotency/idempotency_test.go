package idempotency_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stock-engine/internal/idempotency"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisStore_ReserveOnce(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	client.Del(ctx, "idem:test-reserve")
	store := idempotency.NewRedisStore(client, time.Minute)

	ok, err := store.Reserve(ctx, "test-reserve")
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}
	ok, err = store.Reserve(ctx, "test-reserve")
	if err != nil || ok {
		t.Fatalf("second reserve should be refused: ok=%v err=%v", ok, err)
	}

	if err := store.Release(ctx, "test-reserve"); err != nil {
		t.Fatalf("release: %v", err)
	}
	ok, err = store.Reserve(ctx, "test-reserve")
	if err != nil || !ok {
		t.Fatalf("reserve after release: ok=%v err=%v", ok, err)
	}
	client.Del(ctx, "idem:test-reserve")
}

func TestRedisStore_ConcurrentReserve(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	client.Del(ctx, "idem:test-concurrent")
	store := idempotency.NewRedisStore(client, time.Minute)

	var wg sync.WaitGroup
	var won int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := store.Reserve(ctx, "test-concurrent"); ok {
				atomic.AddInt32(&won, 1)
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("expected exactly one reservation, got %d", won)
	}
	client.Del(ctx, "idem:test-concurrent")
}

func TestNoop(t *testing.T) {
	store := idempotency.Noop()
	for i := 0; i < 2; i++ {
		if ok, err := store.Reserve(context.Background(), "k"); !ok || err != nil {
			t.Fatalf("noop store must accept every key: ok=%v err=%v", ok, err)
		}
	}
}
