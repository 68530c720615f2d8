package loader

import (
	"context"

	"github.com/everyday-items/loadq/lang/contextx"
)

var queueKey = contextx.NewKey[*Queue]("loader.queue")

// NewContext returns a context carrying q, for injector constructors
// that want the queue for this request rather than an explicitly
// threaded parameter. Callers still own and construct the Queue; this
// is ergonomic sugar around passing it explicitly, not a second
// global singleton.
func NewContext(ctx context.Context, q *Queue) context.Context {
	return contextx.WithValue(ctx, queueKey, q)
}

// FromContext returns the Queue stored in ctx by NewContext, or nil
// if none was stored.
func FromContext(ctx context.Context) *Queue {
	q, _ := contextx.Value(ctx, queueKey)
	return q
}
