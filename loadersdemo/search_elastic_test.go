package loadersdemo

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/everyday-items/loadq/infra/db/elasticsearch"
	"github.com/everyday-items/loadq/loader"
)

func TestLoadDocument_BatchingKeyIsIndex(t *testing.T) {
	q := loader.NewQueue()
	f := NewLoadDocument(q, "articles", "42")
	if f.BatchingKey() != "articles" {
		t.Fatalf("expected batching key %q, got %q", "articles", f.BatchingKey())
	}
}

func TestElasticHandler_BatchesIDsIntoOneMget(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	addrs := os.Getenv("TEST_ELASTICSEARCH_ADDRESSES")
	if addrs == "" {
		t.Skip("TEST_ELASTICSEARCH_ADDRESSES not set, skipping Elasticsearch integration test")
	}

	cfg := elasticsearch.DefaultConfig()
	cfg.Addresses = strings.Split(addrs, ",")
	client, err := elasticsearch.New(cfg)
	if err != nil {
		t.Fatalf("failed to connect to Elasticsearch: %v", err)
	}
	defer client.Close()

	q := loader.NewQueue()
	q.RegisterHandler(documentHandlerClass, NewElasticHandler(context.Background(), client))

	a := NewLoadDocument(q, "articles", "1")
	b := NewLoadDocument(q, "articles", "2")

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	if !a.Satisfied() || !b.Satisfied() {
		t.Fatal("expected both documents resolved by one mget")
	}
}
