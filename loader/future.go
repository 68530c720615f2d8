package loader

import (
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// HandlerClass identifies which Handler resolves a future. It defaults
// to the future's own concrete kind.
type HandlerClass string

// BatchingKey tags futures of one HandlerClass that must be resolved
// together in a single Handler.SatisfyMulti call. Default is "all".
type BatchingKey string

// InstanceKey uniquely identifies what is being loaded within a
// (HandlerClass, BatchingKey) group. Futures that don't override
// InstanceKey get a unique token per instance, which defeats
// coalescing. Callers are strongly encouraged to override it with a
// semantic key (e.g. the row id being loaded).
type InstanceKey string

const defaultBatchingKey BatchingKey = "all"

// Future represents one pending load. It becomes satisfied with a
// value exactly once and then notifies every registered callback.
type Future interface {
	// Satisfy transitions the future to satisfied, writing value into
	// the result slot and firing every registered callback, in
	// registration order, with value. Returns ErrAlreadySatisfied if
	// called a second time.
	Satisfy(value any) error

	// Result returns the satisfied value, or ErrNotYetSatisfied if the
	// future is still pending.
	Result() (any, error)

	// Satisfied reports whether the result slot has been written.
	Satisfied() bool

	// AddOnSatisfyCallback registers cb to run with the resolved value.
	// If the future is already satisfied, cb runs synchronously before
	// this method returns. Otherwise cb runs, in registration order,
	// when Satisfy is called. Returns ErrBadCallback if cb is nil.
	AddOnSatisfyCallback(cb func(any)) error
}

// Queueable is the capability set a concrete future kind must
// implement to be injected into a Queue. Combinator futures (Multi,
// Sequence) deliberately do not implement it.
type Queueable interface {
	Future

	// HandlerClass identifies the Handler that resolves this future.
	HandlerClass() HandlerClass

	// BatchingKey groups futures of the same HandlerClass that must be
	// resolved together.
	BatchingKey() BatchingKey

	// InstanceKey uniquely identifies this load within its
	// (HandlerClass, BatchingKey) group.
	InstanceKey() InstanceKey
}

// Handler resolves an entire group of futures sharing a HandlerClass
// and BatchingKey in one call. Implementations must call
// future.Satisfy(value) exactly once on every entry in group before
// returning, using a nil value if there is no useful result. Handlers
// must not satisfy futures outside group.
type Handler interface {
	SatisfyMulti(group map[InstanceKey]Queueable, batchingKey BatchingKey) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(group map[InstanceKey]Queueable, batchingKey BatchingKey) error

// SatisfyMulti calls f.
func (f HandlerFunc) SatisfyMulti(group map[InstanceKey]Queueable, batchingKey BatchingKey) error {
	return f(group, batchingKey)
}

// Base is an embeddable implementation of the satisfaction contract.
// Concrete future kinds embed Base and override HandlerClass,
// BatchingKey, and InstanceKey as needed; the zero value is a future
// with a unique InstanceKey and the default BatchingKey.
type Base struct {
	mu         sync.Mutex
	satisfied  bool
	result     any
	callbacks  []func(any)
	instanceID string // lazily generated, used by the default InstanceKey
	onSatisfy  func(Queueable) // set by Queue.Inject, invoked from Satisfy
	self       Queueable       // set by Queue.Inject; nil for un-queued Base futures
}

// Satisfy implements Future.
func (b *Base) Satisfy(value any) error {
	b.mu.Lock()
	if b.satisfied {
		b.mu.Unlock()
		return ErrAlreadySatisfied
	}
	b.satisfied = true
	b.result = value
	callbacks := b.callbacks
	b.callbacks = nil
	notify := b.onSatisfy
	self := b.self
	b.mu.Unlock()

	if notify != nil && self != nil {
		notify(self)
	}
	for _, cb := range callbacks {
		cb(value)
	}
	return nil
}

// Result implements Future.
func (b *Base) Result() (any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.satisfied {
		return nil, ErrNotYetSatisfied
	}
	return b.result, nil
}

// Satisfied implements Future.
func (b *Base) Satisfied() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.satisfied
}

// AddOnSatisfyCallback implements Future.
func (b *Base) AddOnSatisfyCallback(cb func(any)) error {
	if cb == nil {
		return ErrBadCallback
	}
	b.mu.Lock()
	if b.satisfied {
		value := b.result
		b.mu.Unlock()
		cb(value)
		return nil
	}
	b.callbacks = append(b.callbacks, cb)
	b.mu.Unlock()
	return nil
}

// DefaultHandlerClass derives a HandlerClass from v's concrete type
// name, the Go stand-in for "defaults to the future's own concrete
// kind". Go has no implicit virtual dispatch through an embedded
// struct back to the embedding type, so concrete future kinds that
// want the default must call this explicitly from their own
// HandlerClass method:
//
//	func (f *LoadUser) HandlerClass() loader.HandlerClass {
//	    return loader.DefaultHandlerClass(f)
//	}
func DefaultHandlerClass(v any) HandlerClass {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return HandlerClass(t.Name())
}

// BatchingKey returns the default batching key, "all". Override to
// partition a handler class into independently-batched groups.
func (b *Base) BatchingKey() BatchingKey {
	return defaultBatchingKey
}

// InstanceKey returns a unique per-instance token by default. Override
// with a semantic key so equivalent loads coalesce.
func (b *Base) InstanceKey() InstanceKey {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instanceID == "" {
		b.instanceID = uuid.NewString()
	}
	return InstanceKey(b.instanceID)
}

// bindQueue wires the Base to the queue's satisfaction notification and
// records the outward-facing Queueable so Satisfy can report itself.
// Called once by Queue.Inject when a future is newly installed in
// pending; never called for futures returned via coalescing.
func (b *Base) bindQueue(self Queueable, onSatisfy func(Queueable)) {
	b.mu.Lock()
	b.self = self
	b.onSatisfy = onSatisfy
	b.mu.Unlock()
}
