package renderctx

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ExecutionContext is a read-only view over the request an interceptor runs in.
type ExecutionContext interface {
	// Class is the declaring type of the handler, e.g. "pkg.(*Pages)".
	Class() string
	// Handler identifies the handler, e.g. "pkg.(*Pages).HomeFooter".
	Handler() string
	Request() *http.Request
	Response() *Response
	// Template reports the template declared for the route, if any.
	Template() (string, bool)
}

type ginExecutionContext struct {
	c      *gin.Context
	routes *Routes
}

// NewExecutionContext adapts c. routes resolves the render configuration of
// the matched route; nil means no route is render-eligible.
func NewExecutionContext(c *gin.Context, routes *Routes) ExecutionContext {
	return ginExecutionContext{c: c, routes: routes}
}

func (e ginExecutionContext) route() (Route, bool) {
	if e.c.Request == nil {
		return Route{}, false
	}
	return e.routes.Lookup(e.c.Request.Method, e.c.FullPath())
}

func (e ginExecutionContext) Class() string {
	return DeclaringType(e.Handler())
}

func (e ginExecutionContext) Handler() string {
	if r, ok := e.route(); ok && r.Handler != "" {
		return r.Handler
	}
	return e.c.HandlerName()
}

func (e ginExecutionContext) Request() *http.Request { return e.c.Request }

func (e ginExecutionContext) Response() *Response { return FromGin(e.c) }

func (e ginExecutionContext) Template() (string, bool) {
	r, ok := e.route()
	if !ok || r.Template == "" {
		return "", false
	}
	return r.Template, true
}

// DeclaringType strips the function name from a qualified handler name.
// "pkg.(*T).M" yields "pkg.(*T)"; a plain "pkg.F" yields "pkg".
func DeclaringType(handler string) string {
	name := strings.TrimSuffix(handler, "-fm")
	slash := strings.LastIndex(name, "/")
	dot := strings.LastIndex(name[slash+1:], ".")
	if dot < 0 {
		return name
	}
	return name[:slash+1+dot]
}

// FuncName returns the unqualified function name of a handler.
func FuncName(handler string) string {
	name := strings.TrimSuffix(handler, "-fm")
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

type executionKey struct{}

// WithExecution returns a copy of ctx carrying ec.
func WithExecution(ctx context.Context, ec ExecutionContext) context.Context {
	return context.WithValue(ctx, executionKey{}, ec)
}

// ExecutionFromContext returns the ExecutionContext stored by WithExecution.
func ExecutionFromContext(ctx context.Context) (ExecutionContext, bool) {
	if ctx == nil {
		return nil, false
	}
	ec, ok := ctx.Value(executionKey{}).(ExecutionContext)
	return ec, ok
}
