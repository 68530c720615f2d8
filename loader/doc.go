// Package loader implements a batched deferred-load coordinator.
//
// Application code describes pending data fetches as Future values,
// injects them into a Queue, and later calls Queue.Drain to resolve
// them in grouped batches so related fetches share one round trip to
// whatever backend a Handler talks to.
//
// Basic usage:
//
//	q := loader.NewQueue()
//	q.RegisterHandler(userHandlerClass, userHandler{})
//
//	f := loader.Inject(q, NewLoadUser(7))
//	if err := q.Drain(); err != nil {
//	    // handle BatchIncomplete / Stalled
//	}
//	v, _ := f.Result()
//
// Futures that never enter the queue, Multi (fan-in) and Sequence
// (chained steps), are built directly from other futures and satisfy
// themselves once their children do.
package loader
