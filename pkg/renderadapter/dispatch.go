package renderadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// Strategy is the path a render call took.
type Strategy string

const (
	// StrategyNative delegated to the transport's view renderer.
	StrategyNative Strategy = "native"
	// StrategyIntercepted rendered to a string, ran the render interceptors
	// and replied with the result.
	StrategyIntercepted Strategy = "intercepted"
	// StrategySkipRender replied with a pre-rendered payload as-is.
	StrategySkipRender Strategy = "skip_render"
)

// Dispatch describes one completed render call.
type Dispatch struct {
	View                 string
	FinalView            string
	Strategy             Strategy
	TemplateInterceptors int
	RenderInterceptors   int
	Duration             time.Duration
	Err                  error
}

// Observer receives every dispatch. It must not write to the response.
type Observer func(c *gin.Context, d Dispatch)

// Render runs the render decision for the current request.
//
// A skip-render response must carry a string payload; it gets an HTML content
// type and bypasses template interception. Otherwise the template
// interceptors rewrite view first. When render interceptors are registered
// and the HTML can be had as a string, they post-process it and the result is
// replied directly; otherwise the payload is replied (skip-render) or the
// transport renders view itself.
func (a *Adapter) Render(c *gin.Context, view string, options any) (Strategy, error) {
	resp := renderctx.FromGin(c)
	d := Dispatch{
		View:                 view,
		FinalView:            view,
		TemplateInterceptors: len(resp.TemplateInterceptors),
		RenderInterceptors:   len(resp.RenderInterceptors),
	}
	start := time.Now()
	d.Strategy, d.Err = a.dispatch(requestContext(c), c, resp, options, &d)
	d.Duration = time.Since(start)
	if a.observer != nil {
		a.observer(c, d)
	}
	return d.Strategy, d.Err
}

func (a *Adapter) dispatch(ctx context.Context, c *gin.Context, resp *renderctx.Response, options any, d *Dispatch) (Strategy, error) {
	skip := resp.SkipRender
	var html string
	if skip {
		s, ok := options.(string)
		if !ok {
			return "", &SkipRenderNotStringError{Type: fmt.Sprintf("%T", options)}
		}
		html = s
		a.transport.SetHeader(c, "Content-Type", ContentTypeHTML)
	} else {
		view, err := interception.Intercept(ctx, d.View, resp.TemplateInterceptors)
		if err != nil {
			return "", err
		}
		d.FinalView = view
	}

	if a.canRenderIntercept(resp) {
		if !skip {
			rendered, err := a.renderToString(ctx, a.transport, d.FinalView, options, c)
			if err != nil {
				return "", err
			}
			html = rendered
		}
		out, err := interception.Intercept(ctx, html, resp.RenderInterceptors)
		if err != nil {
			return "", err
		}
		return StrategyIntercepted, a.transport.Reply(c, out)
	}
	if skip {
		return StrategySkipRender, a.transport.Reply(c, html)
	}
	return StrategyNative, a.transport.Render(c, d.FinalView, options)
}

// canRenderIntercept reports whether the rendered HTML can be obtained as a
// string for the render interceptors.
func (a *Adapter) canRenderIntercept(resp *renderctx.Response) bool {
	if len(resp.RenderInterceptors) == 0 {
		return false
	}
	return resp.SkipRender || a.renderToString != nil
}

// RenderString renders view with the configured render-to-string capability.
func (a *Adapter) RenderString(ctx context.Context, c *gin.Context, view string, options any) (string, error) {
	if a.renderToString == nil {
		return "", fmt.Errorf("renderadapter: render-to-string is not configured")
	}
	return a.renderToString(ctx, a.transport, view, options, c)
}

func requestContext(c *gin.Context) context.Context {
	if c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}
