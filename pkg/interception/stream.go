package interception

import (
	"context"
	"iter"
)

// Stream is a lazy, finite sequence of successive values. A non-nil error is
// always the final element. Streams are consumed once.
type Stream = iter.Seq2[string, error]

// Of emits values in order.
func Of(values ...string) Stream {
	return func(yield func(string, error) bool) {
		for _, v := range values {
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Fail emits err and completes.
func Fail(err error) Stream {
	return func(yield func(string, error) bool) {
		yield("", err)
	}
}

// Map transforms every value of s.
func Map(s Stream, fn func(string) string) Stream {
	return MapErr(s, func(v string) (string, error) { return fn(v), nil })
}

// MapErr transforms every value of s; an error from fn ends the stream.
func MapErr(s Stream, fn func(string) (string, error)) Stream {
	return func(yield func(string, error) bool) {
		for v, err := range s {
			if err != nil {
				yield("", err)
				return
			}
			out, err := fn(v)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}

// Filter drops the values of s for which keep returns false.
func Filter(s Stream, keep func(string) bool) Stream {
	return func(yield func(string, error) bool) {
		for v, err := range s {
			if err != nil {
				yield("", err)
				return
			}
			if !keep(v) {
				continue
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}

// Defer resolves a stream the first time it is iterated. It is the deferred
// form of an interceptor result: resolve may block on I/O.
func Defer(ctx context.Context, resolve func(ctx context.Context) (Stream, error)) Stream {
	return func(yield func(string, error) bool) {
		s, err := resolve(ctx)
		if err != nil {
			yield("", err)
			return
		}
		if s == nil {
			return
		}
		for v, err := range s {
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Async runs produce on its own goroutine when the stream is iterated and
// delivers emitted values in order. emit blocks until the consumer takes the
// value and fails once the consumer has stopped. The goroutine has always
// exited by the time iteration returns. A nil ctx is treated as
// context.Background.
func Async(ctx context.Context, produce func(ctx context.Context, emit func(string) error) error) Stream {
	if ctx == nil {
		ctx = context.Background()
	}
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		values := make(chan string)
		done := make(chan error, 1)
		go func() {
			defer close(values)
			done <- produce(ctx, func(v string) error {
				select {
				case values <- v:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}()

		for v := range values {
			if !yield(v, nil) {
				cancel()
				for range values {
				}
				<-done
				return
			}
		}
		if err := <-done; err != nil {
			yield("", err)
		}
	}
}

// FromChannel emits every value received on values until it is closed, then
// the first error from errc, if any. errc may be nil.
func FromChannel(values <-chan string, errc <-chan error) Stream {
	return func(yield func(string, error) bool) {
		for v := range values {
			if !yield(v, nil) {
				return
			}
		}
		if errc == nil {
			return
		}
		if err, ok := <-errc; ok && err != nil {
			yield("", err)
		}
	}
}

// Last drains s and returns its final value.
func Last(s Stream) (string, error) {
	var (
		last string
		seen bool
	)
	for v, err := range s {
		if err != nil {
			return "", err
		}
		last, seen = v, true
	}
	if !seen {
		return "", ErrNoValue
	}
	return last, nil
}
