package renderctx

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
)

const responseKey = "render.response"

// ResultMapper rewrites the data a view handler returned before it is rendered.
type ResultMapper func(ctx context.Context, result any) (any, error)

// Response is the request-scoped render state attached to a gin.Context.
// Interceptor lists are append-only; registration order is execution order.
type Response struct {
	// SkipRender marks the handler result as already rendered HTML.
	SkipRender bool

	TemplateInterceptors []interception.Interceptor
	RenderInterceptors   []interception.Interceptor

	c       *gin.Context
	mappers []ResultMapper
}

// FromGin returns the Response of the request, creating it on first use.
func FromGin(c *gin.Context) *Response {
	if v, ok := c.Get(responseKey); ok {
		if r, ok := v.(*Response); ok {
			return r
		}
	}
	r := &Response{c: c}
	c.Set(responseKey, r)
	return r
}

// Context returns the gin context the response belongs to.
func (r *Response) Context() *gin.Context { return r.c }

// MapResult queues fn to run over the view handler's result, in call order.
func (r *Response) MapResult(fn ResultMapper) {
	if fn == nil {
		return
	}
	r.mappers = append(r.mappers, fn)
}

// ApplyResultMappers runs the queued mappers in order. The first error stops.
func (r *Response) ApplyResultMappers(ctx context.Context, result any) (any, error) {
	var err error
	for _, fn := range r.mappers {
		result, err = fn(ctx, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}
