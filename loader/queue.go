package loader

import (
	"sort"
	"sync"

	cqueue "github.com/everyday-items/loadq/collection/queue"
	"github.com/everyday-items/loadq/collection/set"
	"github.com/everyday-items/loadq/util/logger"
)

type group = map[InstanceKey]Queueable

// pendingGroup holds the futures pending for one (HandlerClass,
// BatchingKey) pair. order is a FIFO of instance keys in injection
// order, so a handler's batch snapshot reflects first-requested-
// first-batched rather than an arbitrary map iteration order.
// Satisfied entries are removed from items but left in order until
// the next snapshot compacts them away.
type pendingGroup struct {
	items map[InstanceKey]Queueable
	order *cqueue.Queue[InstanceKey]
}

func newPendingGroup() *pendingGroup {
	return &pendingGroup{
		items: make(group),
		order: cqueue.NewWithCapacity[InstanceKey](8),
	}
}

func (g *pendingGroup) put(i InstanceKey, f Queueable) {
	if _, exists := g.items[i]; !exists {
		g.order.Enqueue(i)
	}
	g.items[i] = f
}

func (g *pendingGroup) get(i InstanceKey) (Queueable, bool) {
	f, ok := g.items[i]
	return f, ok
}

func (g *pendingGroup) delete(i InstanceKey) {
	delete(g.items, i)
}

func (g *pendingGroup) len() int { return len(g.items) }

// snapshot returns g's pending futures as a plain map for the Handler
// call, together with the injection order of the keys that made it
// into the snapshot. Stale entries left in order by past deletions
// are skipped and compacted out of order as a side effect.
func (g *pendingGroup) snapshot() group {
	out := make(group, len(g.items))
	fresh := cqueue.NewWithCapacity[InstanceKey](g.order.Size())
	for {
		ik, ok := g.order.Dequeue()
		if !ok {
			break
		}
		if f, ok := g.items[ik]; ok {
			out[ik] = f
			fresh.Enqueue(ik)
		}
	}
	g.order = fresh
	return out
}

type pendingIndex struct {
	byClass map[HandlerClass]map[BatchingKey]*pendingGroup
	classes *set.Set[HandlerClass]
}

func newPendingIndex() *pendingIndex {
	return &pendingIndex{
		byClass: make(map[HandlerClass]map[BatchingKey]*pendingGroup),
		classes: set.New[HandlerClass](),
	}
}

func (idx *pendingIndex) lookup(h HandlerClass, b BatchingKey, i InstanceKey) (Queueable, bool) {
	byBatch, ok := idx.byClass[h]
	if !ok {
		return nil, false
	}
	g, ok := byBatch[b]
	if !ok {
		return nil, false
	}
	return g.get(i)
}

func (idx *pendingIndex) ensureGroup(h HandlerClass, b BatchingKey) *pendingGroup {
	byBatch, ok := idx.byClass[h]
	if !ok {
		byBatch = make(map[BatchingKey]*pendingGroup)
		idx.byClass[h] = byBatch
	}
	g, ok := byBatch[b]
	if !ok {
		g = newPendingGroup()
		byBatch[b] = g
	}
	idx.classes.Add(h)
	return g
}

// remove drops i from the (h, b) group, pruning now-empty intermediate
// maps and retiring h from the class set once it has no batching keys
// left at all.
func (idx *pendingIndex) remove(h HandlerClass, b BatchingKey, i InstanceKey) {
	byBatch, ok := idx.byClass[h]
	if !ok {
		return
	}
	g, ok := byBatch[b]
	if !ok {
		return
	}
	g.delete(i)
	if g.len() == 0 {
		delete(byBatch, b)
	}
	if len(byBatch) == 0 {
		delete(idx.byClass, h)
		idx.classes.Remove(h)
	}
}

func (idx *pendingIndex) batchingKeys(h HandlerClass) []BatchingKey {
	byBatch, ok := idx.byClass[h]
	keys := make([]BatchingKey, 0, len(byBatch))
	if ok {
		for b := range byBatch {
			keys = append(keys, b)
		}
	}
	return keys
}

func (idx *pendingIndex) groupFor(h HandlerClass, b BatchingKey) (*pendingGroup, bool) {
	byBatch, ok := idx.byClass[h]
	if !ok {
		return nil, false
	}
	g, ok := byBatch[b]
	return g, ok
}

// binder is implemented by *Base; it lets Queue wire a newly-installed
// future's satisfaction back to the coordinator without the queue
// needing to know the future's concrete type.
type binder interface {
	bindQueue(self Queueable, onSatisfy func(Queueable))
}

// drainSession holds the counters scoped to a single Drain pass: a
// satisfaction count used to detect stalls, and an injection count
// available for diagnostics. Both live only for the duration of one
// Drain call.
type drainSession struct {
	satisfactionCount int
	injectionCount    int
}

// Queue owns the pending set of futures and runs drain passes over it.
// The zero value is not usable; construct with NewQueue.
type Queue struct {
	mu sync.Mutex

	pending        *pendingIndex
	pendingSize    int
	satisfiedCache *pendingIndex // non-nil only during a Drain pass

	classWeights map[HandlerClass]int
	handlers     map[HandlerClass]Handler

	profiler Profiler
	logger   *logger.Logger

	activeDrain *drainSession
}

// NewQueue creates an empty Queue.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		pending:      newPendingIndex(),
		classWeights: make(map[HandlerClass]int),
		handlers:     make(map[HandlerClass]Handler),
		profiler:     defaultProfiler,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// RegisterHandler associates a Handler with a HandlerClass. Futures
// whose HandlerClass() returns class will be resolved by h during
// Drain. Registering a second Handler for the same class replaces the
// first.
func (q *Queue) RegisterHandler(class HandlerClass, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[class] = h
}

// SetProfiler installs p as the wrapper around every batch invocation.
// Pass nil to restore the default (call the batch thunk with no
// bracketing behavior).
func (q *Queue) SetProfiler(p Profiler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if p == nil {
		p = defaultProfiler
	}
	q.profiler = p
}

// SetLogger installs l as the structured logger used for drain/batch
// diagnostics. Pass nil to silence logging.
func (q *Queue) SetLogger(l *logger.Logger) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.logger = l
}

// PendingSize returns the number of futures currently pending across
// every handler class, batching key, and instance key.
func (q *Queue) PendingSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pendingSize
}

// PendingSnapshot returns a read-only diagnostic view of how many
// futures are pending per (HandlerClass, BatchingKey) group. It does
// not mutate queue state and is not part of any drain invariant.
func (q *Queue) PendingSnapshot() map[HandlerClass]map[BatchingKey]int {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[HandlerClass]map[BatchingKey]int, len(q.pending.byClass))
	for h, byBatch := range q.pending.byClass {
		inner := make(map[BatchingKey]int, len(byBatch))
		for b, g := range byBatch {
			inner[b] = g.len()
		}
		out[h] = inner
	}
	return out
}

// SetPreferredLoadOrder ensures h1's batches drain before h2's within a
// single Drain pass. The operation is monotone: it assigns h1 a weight
// of 0 if it has none, then raises h2's weight only if h2 has none or
// its weight does not already exceed h1's. It never lowers h2's
// weight, so a later call cannot invert a previously declared
// preference between unrelated classes. Contradictory preferences are
// not detected here; they surface as a Stalled drain.
func (q *Queue) SetPreferredLoadOrder(h1, h2 HandlerClass) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.classWeights[h1]; !ok {
		q.classWeights[h1] = 0
	}
	w1 := q.classWeights[h1]
	if w2, ok := q.classWeights[h2]; !ok || w2 <= w1 {
		q.classWeights[h2] = w1 + 1
	}
}

// Inject hands f to q, returning either f itself (newly pending) or a
// pre-existing instance with the same (HandlerClass, BatchingKey,
// InstanceKey) triple, already pending or already satisfied during the
// current drain pass. Injector constructors must propagate the
// returned value to their caller; only it is the live future.
func Inject[F Queueable](q *Queue, f F) F {
	result := q.ensureInQueue(f)
	return result.(F)
}

func (q *Queue) ensureInQueue(f Queueable) Queueable {
	h, b, i := f.HandlerClass(), f.BatchingKey(), f.InstanceKey()

	q.mu.Lock()
	if q.satisfiedCache != nil {
		if existing, ok := q.satisfiedCache.lookup(h, b, i); ok {
			q.mu.Unlock()
			return existing
		}
	}
	if existing, ok := q.pending.lookup(h, b, i); ok {
		q.mu.Unlock()
		return existing
	}
	q.pending.ensureGroup(h, b).put(i, f)
	q.pendingSize++
	if q.activeDrain != nil {
		q.activeDrain.injectionCount++
	}
	lg := q.logger
	q.mu.Unlock()

	if bnd, ok := any(f).(binder); ok {
		bnd.bindQueue(f, q.registerSatisfaction)
	}
	if lg != nil {
		lg.Debug("loader: future injected", "handler_class", string(h), "batching_key", string(b), "instance_key", string(i))
	}
	return f
}

// registerSatisfaction is called from Base.Satisfy via the binder hook
// wired in ensureInQueue. It removes f from pending, moves it into the
// current drain pass's satisfied cache (if any), and records a
// satisfaction for stall detection.
func (q *Queue) registerSatisfaction(f Queueable) {
	h, b, i := f.HandlerClass(), f.BatchingKey(), f.InstanceKey()

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.pending.lookup(h, b, i); !ok {
		return
	}
	q.pending.remove(h, b, i)
	q.pendingSize--

	if q.satisfiedCache != nil {
		q.satisfiedCache.ensureGroup(h, b).put(i, f)
	}
	if q.activeDrain != nil {
		q.activeDrain.satisfactionCount++
	}
}

// Drain resolves every pending future. It iterates handler classes in
// ascending preferred-load-order weight, groups each class's pending
// futures by batching key, and hands each group to its registered
// Handler. It repeats until the pending set is empty, since handlers
// are expected to inject further futures while resolving a batch.
//
// Drain returns a *BatchIncompleteError if a handler returns without
// satisfying every member of its group, a *StalledError if a full
// iteration over every handler class satisfies nothing while futures
// remain pending, or whatever error a Handler or the profiler itself
// returns. Any of these abort the pass immediately; futures still
// pending remain in the queue.
func (q *Queue) Drain() error {
	q.mu.Lock()
	if q.pendingSize == 0 {
		q.mu.Unlock()
		return nil
	}
	session := &drainSession{}
	q.activeDrain = session
	q.satisfiedCache = newPendingIndex()
	lg := q.logger
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.activeDrain = nil
		q.satisfiedCache = nil
		q.mu.Unlock()
	}()

	order := q.handlerClassOrder()
	if lg != nil {
		lg.Debug("loader: drain pass starting", "handler_classes", len(order), "pending", q.PendingSize())
	}

	for {
		if q.PendingSize() == 0 {
			return nil
		}

		before := session.satisfactionCount

		for _, h := range order {
			if err := q.drainHandlerClass(h, session); err != nil {
				return err
			}
		}

		if session.satisfactionCount == before {
			size := q.PendingSize()
			if lg != nil {
				lg.Warn("loader: drain stalled", "pending", size)
			}
			return &StalledError{PendingSize: size}
		}
	}
}

// drainHandlerClass runs one pass over every batching key currently
// pending under h, snapshotting each group before dispatch so futures
// injected during a handler call do not retroactively join it.
func (q *Queue) drainHandlerClass(h HandlerClass, session *drainSession) error {
	q.mu.Lock()
	keys := q.pending.batchingKeys(h)
	handler := q.handlers[h]
	profiler := q.profiler
	lg := q.logger
	q.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, b := range keys {
		q.mu.Lock()
		g, ok := q.pending.groupFor(h, b)
		var snapshot group
		if ok {
			snapshot = g.snapshot()
		}
		q.mu.Unlock()

		expected := len(snapshot)
		if expected == 0 {
			continue
		}
		if handler == nil {
			return ErrHandlerNotRegistered
		}

		thunk := func() error { return handler.SatisfyMulti(snapshot, b) }
		if err := profiler(thunk, h, b, expected); err != nil {
			return err
		}

		actual := 0
		for _, f := range snapshot {
			if f.Satisfied() {
				actual++
			}
		}
		if actual != expected {
			return &BatchIncompleteError{HandlerClass: h, BatchingKey: b, Expected: expected, Actual: actual}
		}
		if lg != nil {
			lg.Debug("loader: batch resolved", "handler_class", string(h), "batching_key", string(b), "count", expected)
		}
	}
	return nil
}

// handlerClassOrder computes the ascending class-weight order once per
// Drain pass, from the handler classes with pending work at the time
// it's called. Ties break on class name for deterministic, debuggable
// ordering, even though an unweighted tie is otherwise unobservable.
func (q *Queue) handlerClassOrder() []HandlerClass {
	q.mu.Lock()
	defer q.mu.Unlock()
	classes := q.pending.classes.ToSlice()
	sort.Slice(classes, func(i, j int) bool {
		wi, wj := q.classWeights[classes[i]], q.classWeights[classes[j]]
		if wi != wj {
			return wi < wj
		}
		return classes[i] < classes[j]
	})
	return classes
}

// WithScopedQueue runs fn against a freshly emptied pending set, class
// weight table, and size counter on q, restoring the previous values
// afterward (including when fn returns an error or panics). fn
// typically calls q.Drain itself. Anything still pending in the fresh
// set when fn returns is discarded; the caller is assumed to have
// drained it. Handler registrations and the profiler are unaffected:
// they are queue-wide concerns, not part of the scoped pending set.
func (q *Queue) WithScopedQueue(fn func(q *Queue) error) error {
	q.mu.Lock()
	savedPending, savedSize, savedWeights := q.pending, q.pendingSize, q.classWeights
	q.pending = newPendingIndex()
	q.pendingSize = 0
	q.classWeights = make(map[HandlerClass]int)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.pending = savedPending
		q.pendingSize = savedSize
		q.classWeights = savedWeights
		q.mu.Unlock()
	}()

	return fn(q)
}
