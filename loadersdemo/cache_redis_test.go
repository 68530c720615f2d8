package loadersdemo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/everyday-items/loadq/infra/db/redis"
	"github.com/everyday-items/loadq/loader"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	cfg := redis.DefaultConfig(mr.Addr())
	cfg.DialTimeout = time.Second

	client, err := redis.New(cfg)
	if err != nil {
		mr.Close()
		t.Fatalf("failed to create redis client: %v", err)
	}

	return mr, client
}

func TestRedisHandler_BatchesAllKeysInOneMGet(t *testing.T) {
	mr, client := setupMiniRedis(t)
	defer mr.Close()
	defer client.Close()

	mr.Set("session:1", "alice")
	mr.Set("session:2", "bob")

	q := loader.NewQueue()
	handler := NewRedisHandler(context.Background(), client)
	q.RegisterHandler(cacheHandlerClass, handler)

	a := NewLoadCacheValue(q, "session", "1")
	b := NewLoadCacheValue(q, "session", "2")

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}

	av, _ := a.Result()
	bv, _ := b.Result()
	if av != "alice" || bv != "bob" {
		t.Fatalf("unexpected results: a=%v b=%v", av, bv)
	}
}

func TestRedisHandler_MissingKeyResolvesNil(t *testing.T) {
	mr, client := setupMiniRedis(t)
	defer mr.Close()
	defer client.Close()

	q := loader.NewQueue()
	q.RegisterHandler(cacheHandlerClass, NewRedisHandler(context.Background(), client))

	f := NewLoadCacheValue(q, "session", "missing")
	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	v, _ := f.Result()
	if v != nil {
		t.Fatalf("expected nil for a missing key, got %v", v)
	}
}

func TestRedisHandler_DistinctNamespacesDoNotShareABatch(t *testing.T) {
	mr, client := setupMiniRedis(t)
	defer mr.Close()
	defer client.Close()

	mr.Set("session:1", "alice")
	mr.Set("profile:1", "alice-profile")

	q := loader.NewQueue()
	q.RegisterHandler(cacheHandlerClass, NewRedisHandler(context.Background(), client))

	session := NewLoadCacheValue(q, "session", "1")
	profile := NewLoadCacheValue(q, "profile", "1")

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	sv, _ := session.Result()
	pv, _ := profile.Result()
	if sv != "alice" || pv != "alice-profile" {
		t.Fatalf("unexpected cross-namespace results: session=%v profile=%v", sv, pv)
	}
}

func TestRedisHandler_WarmAfterLoadWritesBack(t *testing.T) {
	mr, client := setupMiniRedis(t)
	defer mr.Close()
	defer client.Close()

	h := NewRedisHandler(context.Background(), client)
	h.WarmAfterLoad("session", "99", "late-value", time.Minute)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if mr.Exists("session:99") {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expected WarmAfterLoad to write the key back within the deadline")
}
