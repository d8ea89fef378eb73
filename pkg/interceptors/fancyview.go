package interceptors

import (
	"context"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// DefaultFancyPrefix is the view directory alternate templates live under.
const DefaultFancyPrefix = "fancy"

// ViewPrefix places view under the prefix directory.
func ViewPrefix(prefix, view string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return view
	}
	return path.Join(prefix, view)
}

// FancyView is a template interceptor that swaps in the view under Prefix.
// With Header set, only requests carrying that header are rewritten.
type FancyView struct {
	Header string
	Prefix string
}

func (f FancyView) RenderIntercept(ctx context.Context, next interception.Handler) (interception.Stream, error) {
	if f.Header != "" {
		ec, ok := renderctx.ExecutionFromContext(ctx)
		if !ok || ec.Request() == nil || ec.Request().Header.Get(f.Header) == "" {
			return next.Handle(), nil
		}
	}
	prefix := f.Prefix
	if prefix == "" {
		prefix = DefaultFancyPrefix
	}
	return interception.Map(next.Handle(), func(view string) string {
		return ViewPrefix(prefix, view)
	}), nil
}

// StringRenderer renders a view to HTML without writing the response.
type StringRenderer interface {
	RenderString(ctx context.Context, c *gin.Context, view string, options any) (string, error)
	Routes() *renderctx.Routes
}

// PreRender renders the prefixed view itself when the request carries header
// and hands the HTML to the dispatcher as a skip-render payload.
func PreRender(r StringRenderer, header, prefix string) gin.HandlerFunc {
	if prefix == "" {
		prefix = DefaultFancyPrefix
	}
	return func(c *gin.Context) {
		ec := renderctx.NewExecutionContext(c, r.Routes())
		view, ok := ec.Template()
		if ok && header != "" && c.GetHeader(header) != "" {
			resp := ec.Response()
			resp.MapResult(func(ctx context.Context, result any) (any, error) {
				out, err := r.RenderString(ctx, c, ViewPrefix(prefix, view), result)
				if err != nil {
					return nil, err
				}
				resp.SkipRender = true
				return out, nil
			})
		}
		c.Next()
	}
}
