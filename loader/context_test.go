package loader

import (
	"context"
	"testing"
)

func TestContext_RoundTrip(t *testing.T) {
	q := NewQueue()
	ctx := NewContext(context.Background(), q)
	if got := FromContext(ctx); got != q {
		t.Fatalf("expected FromContext to return the stored queue")
	}
}

func TestContext_AbsentReturnsNil(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil for a context with no stored queue, got %v", got)
	}
}
