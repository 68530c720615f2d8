package loader

import "sync"

// Multi is the fan-in combinator: it satisfies once every child
// future it was built from has satisfied, with a result container of
// the same shape as its input. Multi never enters a queue and has no
// HandlerClass, BatchingKey, or InstanceKey.
type Multi struct {
	combinatorCore
}

// MultiMap builds a Multi over a keyed collection of children. The
// result, once satisfied, is a map[K]any holding each child's result
// under its original key. An empty input satisfies m synchronously
// with an empty map.
func MultiMap[K comparable](children map[K]Future) *Multi {
	m := &Multi{}
	if len(children) == 0 {
		_ = m.Satisfy(map[K]any{})
		return m
	}

	result := make(map[K]any, len(children))
	var mu sync.Mutex
	remaining := len(children)

	for key, child := range children {
		key := key
		_ = child.AddOnSatisfyCallback(func(value any) {
			mu.Lock()
			result[key] = value
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				_ = m.Satisfy(result)
			}
		})
	}
	return m
}

// MultiSlice builds a Multi over an ordered collection of children.
// The result, once satisfied, is a []any of equal length with each
// child's result at its original position. An empty input satisfies m
// synchronously with an empty slice.
func MultiSlice(children []Future) *Multi {
	m := &Multi{}
	n := len(children)
	if n == 0 {
		_ = m.Satisfy([]any{})
		return m
	}

	result := make([]any, n)
	var mu sync.Mutex
	remaining := n

	for idx, child := range children {
		idx := idx
		_ = child.AddOnSatisfyCallback(func(value any) {
			mu.Lock()
			result[idx] = value
			remaining--
			done := remaining == 0
			mu.Unlock()
			if done {
				_ = m.Satisfy(result)
			}
		})
	}
	return m
}
