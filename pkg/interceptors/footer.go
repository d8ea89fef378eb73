package interceptors

import (
	"context"
	"strings"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// Footer is a render interceptor that injects HTML before </body>.
type Footer struct {
	HTML string
	// HandlerSuffix limits the footer to handlers whose function name ends
	// with it. Empty matches every handler.
	HandlerSuffix string
}

func (f Footer) RenderIntercept(ctx context.Context, next interception.Handler) (interception.Stream, error) {
	if !f.matches(ctx) {
		return next.Handle(), nil
	}
	return interception.Map(next.Handle(), func(doc string) string {
		return InjectBeforeBodyEnd(doc, f.HTML)
	}), nil
}

func (f Footer) matches(ctx context.Context) bool {
	if f.HandlerSuffix == "" {
		return true
	}
	ec, ok := renderctx.ExecutionFromContext(ctx)
	if !ok {
		return false
	}
	return strings.HasSuffix(renderctx.FuncName(ec.Handler()), f.HandlerSuffix)
}
