package loadersdemo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/everyday-items/loadq/infra/db/redis"
)

func TestBackendManager_HealthCheckCoversRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	cfg := redis.DefaultConfig(mr.Addr())
	cfg.DialTimeout = time.Second

	client, err := redis.New(cfg)
	if err != nil {
		t.Fatalf("failed to create redis client: %v", err)
	}
	defer client.Close()

	mgr := NewBackendManager(nil, client)

	if got, want := mgr.Len(), 1; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}

	results := mgr.HealthCheckMap(context.Background())
	if err, ok := results["redis"]; !ok || err != nil {
		t.Fatalf("expected healthy redis entry, got err=%v ok=%v", err, ok)
	}

	if !mgr.IsHealthy(context.Background()) {
		t.Fatal("expected manager to report healthy with only redis registered")
	}
}

func TestBackendManager_SkipsNilClients(t *testing.T) {
	mgr := NewBackendManager(nil, nil)
	if got, want := mgr.Len(), 0; got != want {
		t.Fatalf("Len() = %d, want %d", got, want)
	}
}
