package loader

import (
	"sync"
	"sync/atomic"
	"testing"
)

// ============================================================================
// Concurrent injection / stall-free drain stress tests
// ============================================================================

func TestQueue_ConcurrentInjectCoalescesByIdentity(t *testing.T) {
	q := NewQueue()
	var calls atomic.Int32
	q.RegisterHandler("user", HandlerFunc(func(g map[InstanceKey]Queueable, b BatchingKey) error {
		calls.Add(1)
		return satisfyAll(g, nil)
	}))

	const workers = 64
	futures := make([]*testFuture, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			futures[i] = Inject(q, &testFuture{class: "user", inst: "shared"})
		}()
	}
	wg.Wait()

	first := futures[0]
	for i, f := range futures {
		if f != first {
			t.Fatalf("future %d did not coalesce to the shared instance", i)
		}
	}
	if q.PendingSize() != 1 {
		t.Fatalf("expected exactly one pending entry after concurrent injection, got %d", q.PendingSize())
	}

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one batch dispatched, got %d", calls.Load())
	}
}

func TestQueue_ConcurrentInjectDistinctIdentitiesAllResolve(t *testing.T) {
	q := NewQueue()
	q.RegisterHandler("user", HandlerFunc(func(g map[InstanceKey]Queueable, b BatchingKey) error {
		return satisfyAll(g, "resolved")
	}))

	const workers = 200
	futures := make([]*testFuture, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			futures[i] = Inject(q, &testFuture{class: "user", inst: InstanceKey(string(rune('a' + i%26)))})
		}()
	}
	wg.Wait()

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	for i, f := range futures {
		if !f.Satisfied() {
			t.Fatalf("future %d left unsatisfied after Drain", i)
		}
	}
}

func TestQueue_ConcurrentSatisfyCallbacksDoNotRace(t *testing.T) {
	q := NewQueue()
	q.RegisterHandler("user", HandlerFunc(func(g map[InstanceKey]Queueable, b BatchingKey) error {
		return satisfyAll(g, 1)
	}))

	const workers = 100
	var total atomic.Int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		i := i
		go func() {
			defer wg.Done()
			f := Inject(q, &testFuture{class: "user", inst: InstanceKey(string(rune('a' + i%10)))})
			_ = f.AddOnSatisfyCallback(func(v any) {
				total.Add(int64(v.(int)))
			})
		}()
	}
	wg.Wait()

	if err := q.Drain(); err != nil {
		t.Fatalf("unexpected drain error: %v", err)
	}
	// 10 distinct instance keys (a..j), each incremented by however
	// many of the 100 goroutines landed on it; every contributing
	// goroutine's callback must still have fired exactly once.
	if total.Load() == 0 {
		t.Fatal("expected callbacks to have accumulated a nonzero total")
	}
}
