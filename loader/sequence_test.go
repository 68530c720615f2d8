package loader

import (
	"errors"
	"testing"
)

func TestSequence_ThreadsValueThroughFinalValueSteps(t *testing.T) {
	seed := &testFuture{}
	seq := NewSequence(seed, []ProgressionFunc{
		func(v any) any { return v.(int) + 1 },
		func(v any) any { return v.(int) * 10 },
	})

	_ = seed.Satisfy(1)

	v, err := seq.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 20 {
		t.Fatalf("expected 20, got %v", v)
	}
}

func TestSequence_StepReturningFutureContinuesTheChain(t *testing.T) {
	seed := &testFuture{}
	intermediate := &testFuture{}

	seq := NewSequence(seed, []ProgressionFunc{
		func(v any) any { return intermediate },
		func(v any) any { return "final: " + v.(string) },
	})

	_ = seed.Satisfy("seed result")
	if seq.Satisfied() {
		t.Fatal("expected Sequence still pending on the intermediate future")
	}

	_ = intermediate.Satisfy("intermediate result")
	v, err := seq.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "final: intermediate result" {
		t.Fatalf("unexpected result: %v", v)
	}
}

func TestSequence_SingleStepEndsImmediately(t *testing.T) {
	seed := &testFuture{}
	seq := NewSequence(seed, []ProgressionFunc{
		func(v any) any { return v },
	})
	_ = seed.Satisfy("done")

	v, err := seq.Result()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "done" {
		t.Fatalf("expected %q, got %v", "done", v)
	}
}

func TestSequence_UnderrunPanics(t *testing.T) {
	seed := &testFuture{}
	intermediate := &testFuture{}
	// Only one step, but the chain will need two: the first step
	// returns another future, leaving nothing to consume its result.
	seq := NewSequence(seed, []ProgressionFunc{
		func(v any) any { return intermediate },
	})

	_ = seed.Satisfy("seed")

	// advance runs synchronously from within intermediate.Satisfy's
	// callback dispatch and panics there, since the propagation policy
	// for a failure raised from inside a completion callback is to let
	// it surface as a panic rather than catching it at the coordinator.
	func() {
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected underrun to panic")
			}
			if err, ok := r.(error); !ok || !errors.Is(err, ErrSequenceUnderrun) {
				t.Fatalf("expected panic to wrap ErrSequenceUnderrun, got %v", r)
			}
		}()
		_ = intermediate.Satisfy("intermediate")
	}()

	if seq.Satisfied() {
		t.Fatal("expected Sequence to remain unsatisfied after underrun")
	}
}

func TestSequence_AdvancePanicsWithErrSequenceUnderrun(t *testing.T) {
	seq := &Sequence{}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected advance to panic with no steps remaining")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrSequenceUnderrun) {
			t.Fatalf("expected panic to wrap ErrSequenceUnderrun, got %v", r)
		}
	}()
	seq.advance("anything")
}

func TestSequence_HandlerClassPanics(t *testing.T) {
	seq := &Sequence{}
	defer func() {
		if recover() == nil {
			t.Fatal("expected HandlerClass to panic on a combinator future")
		}
	}()
	_ = seq.HandlerClass()
}
