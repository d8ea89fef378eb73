package interception

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoValue is returned when the outermost stream completes without emitting.
var ErrNoValue = errors.New("interception: stream completed without a value")

// Handler gives an interceptor access to the rest of the chain.
type Handler interface {
	// Handle invokes the next position and returns its stream.
	Handle() Stream
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func() Stream

func (f HandlerFunc) Handle() Stream { return f() }

// Interceptor observes or replaces the value produced by the rest of the chain.
//
// Returning next.Handle() unchanged is a pass-through. Returning a stream
// derived from it (Map, Filter) transforms. Returning an unrelated stream
// replaces the value; if next.Handle() was never called the positions behind
// this one never run. A non-nil error aborts the chain.
type Interceptor interface {
	RenderIntercept(ctx context.Context, next Handler) (Stream, error)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(ctx context.Context, next Handler) (Stream, error)

func (f InterceptorFunc) RenderIntercept(ctx context.Context, next Handler) (Stream, error) {
	return f(ctx, next)
}

// Intercept runs seed through interceptors and returns the last value emitted
// by the outermost stream. An empty chain returns seed unchanged.
func Intercept(ctx context.Context, seed string, interceptors []Interceptor) (string, error) {
	if len(interceptors) == 0 {
		return seed, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c := &chain{ctx: ctx, seed: seed, interceptors: interceptors}
	s, err := c.at(0)
	if err != nil {
		return "", err
	}
	return Last(s)
}

type chain struct {
	ctx          context.Context
	seed         string
	interceptors []Interceptor
}

// at invokes the interceptor at position i with the continuation for i+1.
// One past the end resolves to the seed.
func (c *chain) at(i int) (Stream, error) {
	if i >= len(c.interceptors) {
		return Of(c.seed), nil
	}
	in := c.interceptors[i]
	if in == nil {
		return nil, fmt.Errorf("interception: nil interceptor at position %d", i)
	}
	s, err := in.RenderIntercept(c.ctx, continuation{chain: c, next: i + 1})
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("interception: interceptor at position %d returned a nil stream", i)
	}
	return s, nil
}

type continuation struct {
	chain *chain
	next  int
}

func (k continuation) Handle() Stream {
	s, err := k.chain.at(k.next)
	if err != nil {
		return Fail(err)
	}
	return s
}
