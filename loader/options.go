package loader

import "github.com/everyday-items/loadq/util/logger"

// Option configures a Queue at construction time.
type Option func(*Queue)

// WithProfiler installs p as the queue's batch-invocation wrapper.
func WithProfiler(p Profiler) Option {
	return func(q *Queue) {
		if p != nil {
			q.profiler = p
		}
	}
}

// WithLogger installs l as the queue's structured logger.
func WithLogger(l *logger.Logger) Option {
	return func(q *Queue) {
		q.logger = l
	}
}

// WithPreferredOrder declares h1 before h2, equivalent to calling
// SetPreferredLoadOrder(h1, h2) immediately after construction.
func WithPreferredOrder(h1, h2 HandlerClass) Option {
	return func(q *Queue) {
		q.SetPreferredLoadOrder(h1, h2)
	}
}

// WithHandler registers h for class at construction time, equivalent
// to calling RegisterHandler(class, h) immediately after construction.
func WithHandler(class HandlerClass, h Handler) Option {
	return func(q *Queue) {
		q.handlers[class] = h
	}
}
