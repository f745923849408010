package remote

// Result is the outcome of one remote call: a decoded value on success or a
// fault classified as client or server side.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Fault   *FaultError
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool { return r.Outcome == Success }

// Unwrap converts the result into the usual (value, error) pair. The error is
// always a *FaultError when non-nil.
func (r Result[T]) Unwrap() (T, error) {
	if r.Outcome != Success {
		var zero T
		return zero, r.Fault
	}
	return r.Value, nil
}

func succeeded[T any](v T) Result[T] {
	return Result[T]{Value: v, Outcome: Success}
}

func failed[T any](f *FaultError) Result[T] {
	return Result[T]{Outcome: f.Outcome, Fault: f}
}
