package renderserver

import (
	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
)

const (
	ctxKeyTemplate             = "render.template"
	ctxKeyFinalTemplate        = "render.final_template"
	ctxKeyStrategy             = "render.strategy"
	ctxKeyTemplateInterceptors = "render.template_interceptors"
	ctxKeyRenderInterceptors   = "render.render_interceptors"
	ctxKeyRenderMs             = "render.render_ms"
	ctxKeyRenderError          = "render.error"
)

// dispatchObserver copies every dispatch onto the gin context for the access
// log and into the metrics.
func dispatchObserver(m *renderMetrics) renderadapter.Observer {
	return func(c *gin.Context, d renderadapter.Dispatch) {
		c.Set(ctxKeyTemplate, d.View)
		c.Set(ctxKeyFinalTemplate, d.FinalView)
		c.Set(ctxKeyStrategy, string(d.Strategy))
		c.Set(ctxKeyTemplateInterceptors, d.TemplateInterceptors)
		c.Set(ctxKeyRenderInterceptors, d.RenderInterceptors)
		c.Set(ctxKeyRenderMs, d.Duration.Milliseconds())
		if d.Err != nil {
			c.Set(ctxKeyRenderError, d.Err.Error())
		}
		m.observeDispatch(d)
	}
}
