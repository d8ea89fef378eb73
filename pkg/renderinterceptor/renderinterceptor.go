// Package renderinterceptor turns interceptors into gin middleware that
// registers them on render-eligible routes.
package renderinterceptor

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// Role selects the registration list an interceptor joins.
type Role int

const (
	// RoleTemplate interceptors rewrite the template name.
	RoleTemplate Role = iota
	// RoleRender interceptors rewrite the rendered HTML.
	RoleRender
)

func (r Role) String() string {
	switch r {
	case RoleTemplate:
		return "template"
	case RoleRender:
		return "render"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Registrar is the registration API of the adapter.
type Registrar interface {
	RegisterTemplateInterception(i interception.Interceptor, resp *renderctx.Response)
	RegisterRenderInterception(i interception.Interceptor, resp *renderctx.Response)
	Routes() *renderctx.Routes
}

// Middleware registers i on every request whose route declares a template.
// Routes without one pass through untouched. The interceptor sees the
// request's ExecutionContext through ExecutionFromContext. It panics on a
// role other than RoleTemplate or RoleRender.
func Middleware(reg Registrar, role Role, i interception.Interceptor) gin.HandlerFunc {
	var register func(interception.Interceptor, *renderctx.Response)
	switch role {
	case RoleTemplate:
		register = reg.RegisterTemplateInterception
	case RoleRender:
		register = reg.RegisterRenderInterception
	default:
		panic(fmt.Sprintf("renderinterceptor: unknown interceptor role %s", role))
	}
	return func(c *gin.Context) {
		ec := renderctx.NewExecutionContext(c, reg.Routes())
		if _, ok := ec.Template(); ok && i != nil {
			register(&Bound{Interceptor: i, Execution: ec, Role: role}, ec.Response())
		}
		c.Next()
	}
}

// Template is Middleware with RoleTemplate.
func Template(reg Registrar, i interception.Interceptor) gin.HandlerFunc {
	return Middleware(reg, RoleTemplate, i)
}

// Render is Middleware with RoleRender.
func Render(reg Registrar, i interception.Interceptor) gin.HandlerFunc {
	return Middleware(reg, RoleRender, i)
}

// Bound is an interceptor registered for one request.
type Bound struct {
	Interceptor interception.Interceptor
	Execution   renderctx.ExecutionContext
	Role        Role
}

func (b *Bound) RenderIntercept(ctx context.Context, next interception.Handler) (interception.Stream, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.Interceptor.RenderIntercept(renderctx.WithExecution(ctx, b.Execution), next)
}

func (b *Bound) Unwrap() interception.Interceptor { return b.Interceptor }
