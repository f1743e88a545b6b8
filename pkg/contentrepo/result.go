package contentrepo

// Result is the outcome of a repository operation that carries no payload.
// It is either a success or a failure with a human-readable message.
//
// The zero value is a failure with an empty message.
type Result struct {
	ok      bool
	message string
}

// Success returns a successful Result.
func Success() Result {
	return Result{ok: true}
}

// Failure returns a failed Result carrying message.
func Failure(message string) Result {
	return Result{message: message}
}

// FromBool returns Success for true and a Failure with an empty message for false.
func FromBool(ok bool) Result {
	if ok {
		return Success()
	}
	return Result{}
}

// IsSuccess reports whether the result is the success variant.
func (r Result) IsSuccess() bool { return r.ok }

// IsFailure reports whether the result is the failure variant.
func (r Result) IsFailure() bool { return !r.ok }

// Message returns the failure message. It is always empty for a success.
func (r Result) Message() string {
	if r.ok {
		return ""
	}
	return r.message
}

func (r Result) String() string {
	if r.ok {
		return "success"
	}
	return "failure: " + r.message
}

// ResultOf is the outcome of a repository operation that yields a value of type T on success.
//
// The zero value is a failure with an empty message; it never holds a value.
type ResultOf[T any] struct {
	value   T
	ok      bool
	message string
}

// SuccessOf returns a successful result holding value.
func SuccessOf[T any](value T) ResultOf[T] {
	return ResultOf[T]{value: value, ok: true}
}

// FailureOf returns a failed result carrying message.
func FailureOf[T any](message string) ResultOf[T] {
	return ResultOf[T]{message: message}
}

// IsSuccess reports whether the result is the success variant.
func (r ResultOf[T]) IsSuccess() bool { return r.ok }

// IsFailure reports whether the result is the failure variant.
func (r ResultOf[T]) IsFailure() bool { return !r.ok }

// Message returns the failure message. It is always empty for a success.
func (r ResultOf[T]) Message() string {
	if r.ok {
		return ""
	}
	return r.message
}

// TryGet returns the success value and true, or the zero value of T and false
// when the result is a failure.
func (r ResultOf[T]) TryGet() (T, bool) {
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Unwrap returns the value, the failure message and the success flag in one call.
func (r ResultOf[T]) Unwrap() (T, string, bool) {
	value, ok := r.TryGet()
	return value, r.Message(), ok
}

// Result drops the payload and keeps the variant and message.
func (r ResultOf[T]) Result() Result {
	return Result{ok: r.ok, message: r.Message()}
}

func (r ResultOf[T]) String() string {
	return r.Result().String()
}

// WithValue carries value on a successful r and the failure message otherwise.
func WithValue[T any](r Result, value T) ResultOf[T] {
	if r.IsFailure() {
		return FailureOf[T](r.Message())
	}
	return SuccessOf(value)
}
