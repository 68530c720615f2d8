package loader

import "sync"

// combinatorCore implements the satisfaction contract shared by Multi
// and Sequence. Unlike Base, it never touches a Queue: Satisfy does
// not notify any coordinator, since combinators are never tracked by
// one. HandlerClass, BatchingKey, and InstanceKey panic with
// ErrCombinatorMisuse. They are not meaningful on a future that never
// enters a queue, and Go has no error-returning signature for those
// accessors to report that failure through, so it surfaces as a panic
// instead of a returned error.
type combinatorCore struct {
	mu        sync.Mutex
	satisfied bool
	result    any
	callbacks []func(any)
}

func (c *combinatorCore) Satisfy(value any) error {
	c.mu.Lock()
	if c.satisfied {
		c.mu.Unlock()
		return ErrAlreadySatisfied
	}
	c.satisfied = true
	c.result = value
	callbacks := c.callbacks
	c.callbacks = nil
	c.mu.Unlock()

	for _, cb := range callbacks {
		cb(value)
	}
	return nil
}

func (c *combinatorCore) Result() (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.satisfied {
		return nil, ErrNotYetSatisfied
	}
	return c.result, nil
}

func (c *combinatorCore) Satisfied() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.satisfied
}

func (c *combinatorCore) AddOnSatisfyCallback(cb func(any)) error {
	if cb == nil {
		return ErrBadCallback
	}
	c.mu.Lock()
	if c.satisfied {
		value := c.result
		c.mu.Unlock()
		cb(value)
		return nil
	}
	c.callbacks = append(c.callbacks, cb)
	c.mu.Unlock()
	return nil
}

func (c *combinatorCore) HandlerClass() HandlerClass {
	panic(ErrCombinatorMisuse)
}

func (c *combinatorCore) BatchingKey() BatchingKey {
	panic(ErrCombinatorMisuse)
}

func (c *combinatorCore) InstanceKey() InstanceKey {
	panic(ErrCombinatorMisuse)
}
