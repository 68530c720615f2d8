package loader

// Profiler wraps a single batch invocation for instrumentation. It
// must call thunk exactly once, bracketing it with whatever timing or
// logging it wishes, and return whatever error thunk returned (or a
// wrapping of it). The coordinator does not otherwise consume a
// Profiler's return value beyond propagating a non-nil error out of
// Drain.
type Profiler func(thunk func() error, handlerClass HandlerClass, batchingKey BatchingKey, count int) error

// defaultProfiler calls thunk with no bracketing behavior.
func defaultProfiler(thunk func() error, _ HandlerClass, _ BatchingKey, _ int) error {
	return thunk()
}
