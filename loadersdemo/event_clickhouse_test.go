package loadersdemo

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/everyday-items/loadq/infra/db/clickhouse"
	"github.com/everyday-items/loadq/loader"
)

func TestLoadEventCount_BatchingKeyIsTable(t *testing.T) {
	q := loader.NewQueue()
	f := NewLoadEventCount(q, "page_views", "homepage")
	if f.BatchingKey() != "page_views" {
		t.Fatalf("expected batching key %q, got %q", "page_views", f.BatchingKey())
	}
}

func TestClickHouseHandler_BatchesDimsIntoOneQuery(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	addrs := os.Getenv("TEST_CLICKHOUSE_ADDRS")
	if addrs == "" {
		t.Skip("TEST_CLICKHOUSE_ADDRS not set, skipping ClickHouse integration test")
	}

	cfg := clickhouse.DefaultConfig()
	cfg.Addrs = strings.Split(addrs, ",")
	client, err := clickhouse.New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("failed to connect to ClickHouse: %v", err)
	}
	defer client.Close()

	q := loader.NewQueue()
	q.RegisterHandler(eventHandlerClass, NewClickHouseHandler(context.Background(), client))

	a := NewLoadEventCount(q, "page_views", "homepage")
	b := NewLoadEventCount(q, "page_views", "pricing")

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	if !a.Satisfied() || !b.Satisfied() {
		t.Fatal("expected both dims resolved by one batch")
	}
}
