package loader

import (
	"errors"
	"fmt"
)

// ============================================================================
// Error definitions
// ============================================================================

var (
	// ErrAlreadySatisfied indicates Satisfy was called on a future whose
	// result slot is already set. Programmer error.
	ErrAlreadySatisfied = errors.New("loader: future already satisfied")

	// ErrNotYetSatisfied indicates Result was called on a pending future.
	ErrNotYetSatisfied = errors.New("loader: future not yet satisfied")

	// ErrBadCallback indicates AddOnSatisfyCallback was given a nil callback.
	ErrBadCallback = errors.New("loader: callback must not be nil")

	// ErrCombinatorMisuse indicates HandlerClass, BatchingKey, InstanceKey,
	// or SatisfyMulti was invoked on a combinator future (Multi, Sequence),
	// none of which are meaningful outside the queue.
	ErrCombinatorMisuse = errors.New("loader: operation not meaningful on a combinator future")

	// ErrSequenceUnderrun indicates a chain produced more intermediate
	// futures than the provided progression functions could consume.
	ErrSequenceUnderrun = errors.New("loader: sequence ran out of progression functions")

	// ErrHandlerNotRegistered indicates a future's handler class has no
	// Handler registered with the queue it was injected into.
	ErrHandlerNotRegistered = errors.New("loader: no handler registered for handler class")
)

// BatchIncompleteError reports that a Handler's SatisfyMulti returned
// without satisfying every member of its group.
type BatchIncompleteError struct {
	HandlerClass HandlerClass
	BatchingKey  BatchingKey
	Expected     int
	Actual       int
}

func (e *BatchIncompleteError) Error() string {
	return fmt.Sprintf(
		"loader: batch incomplete for handler %q, batching key %q: expected %d satisfied, got %d",
		e.HandlerClass, e.BatchingKey, e.Expected, e.Actual,
	)
}

// StalledError reports that a full iteration over all handler classes
// satisfied zero futures while the queue was still non-empty.
type StalledError struct {
	PendingSize int
}

func (e *StalledError) Error() string {
	return fmt.Sprintf("loader: drain stalled with %d future(s) still pending", e.PendingSize)
}

// IsFatal reports whether err is one of the drain-aborting errors
// (BatchIncompleteError or StalledError) as opposed to a programmer-error
// sentinel raised at a call site outside drain.
func IsFatal(err error) bool {
	var bi *BatchIncompleteError
	var st *StalledError
	return errors.As(err, &bi) || errors.As(err, &st)
}
