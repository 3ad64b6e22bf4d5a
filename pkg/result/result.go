// Package result provides a three-state value used by per-file analysis
// stages: present with a value, absent, or failed with a cause. Absence and
// failure stay distinguishable through every stage, and neither is ever
// expressed as a panic, so one unit of work cannot abort its siblings.
package result

type state uint8

const (
	statePresent state = iota
	stateAbsent
	stateFailed
)

// Result holds a value, an absence, or a failure cause.
// The zero value is absent.
type Result[T any] struct {
	value T
	err   error
	state state
}

// Of returns a present Result holding v.
func Of[T any](v T) Result[T] {
	return Result[T]{value: v, state: statePresent}
}

// Absent returns an absent Result.
func Absent[T any]() Result[T] {
	return Result[T]{state: stateAbsent}
}

// Fail returns a failed Result carrying err.
func Fail[T any](err error) Result[T] {
	return Result[T]{err: err, state: stateFailed}
}

// IsPresent reports whether a value is present.
func (r Result[T]) IsPresent() bool {
	return r.state == statePresent
}

// IsAbsent reports whether the Result is absent.
func (r Result[T]) IsAbsent() bool {
	return r.state == stateAbsent
}

// IsFailed reports whether the Result carries a failure.
func (r Result[T]) IsFailed() bool {
	return r.state == stateFailed
}

// Value returns the held value and whether it is present.
func (r Result[T]) Value() (T, bool) {
	return r.value, r.state == statePresent
}

// Err returns the failure cause, or nil when the Result did not fail.
func (r Result[T]) Err() error {
	return r.err
}

// Or returns the held value when present, otherwise fallback.
func (r Result[T]) Or(fallback T) T {
	if r.state == statePresent {
		return r.value
	}

	return fallback
}

// Filter turns a present Result into an absent one when pred rejects the
// value. Absent and failed Results pass through unchanged.
func (r Result[T]) Filter(pred func(T) bool) Result[T] {
	if r.state == statePresent && !pred(r.value) {
		return Absent[T]()
	}

	return r
}

// Recover turns a failed Result into a present one by computing a
// replacement value from the cause. Present and absent Results pass through.
func (r Result[T]) Recover(fn func(error) T) Result[T] {
	if r.state == stateFailed {
		return Of(fn(r.err))
	}

	return r
}

// IfPresent calls fn with the value when present and returns the Result
// unchanged for chaining.
func (r Result[T]) IfPresent(fn func(T)) Result[T] {
	if r.state == statePresent {
		fn(r.value)
	}

	return r
}

// IfAbsent calls fn when the Result is absent and returns the Result
// unchanged for chaining.
func (r Result[T]) IfAbsent(fn func()) Result[T] {
	if r.state == stateAbsent {
		fn()
	}

	return r
}

// IfFailed calls fn with the cause when the Result failed and returns the
// Result unchanged for chaining.
func (r Result[T]) IfFailed(fn func(error)) Result[T] {
	if r.state == stateFailed {
		fn(r.err)
	}

	return r
}

// Map transforms a present Result's value. Absence and failure propagate
// untouched.
func Map[T, U any](r Result[T], fn func(T) U) Result[U] {
	switch r.state {
	case statePresent:
		return Of(fn(r.value))
	case stateFailed:
		return Fail[U](r.err)
	case stateAbsent:
		return Absent[U]()
	}

	return Absent[U]()
}

// FlatMap transforms a present Result's value into a new Result, allowing a
// step to introduce its own absence or failure. Absence and failure of the
// input propagate untouched.
func FlatMap[T, U any](r Result[T], fn func(T) Result[U]) Result[U] {
	switch r.state {
	case statePresent:
		return fn(r.value)
	case stateFailed:
		return Fail[U](r.err)
	case stateAbsent:
		return Absent[U]()
	}

	return Absent[U]()
}
