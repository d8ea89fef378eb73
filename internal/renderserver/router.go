package renderserver

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/internal/logx"
	"github.com/r9s-ai/render-interceptor/pkg/config"
	"github.com/r9s-ai/render-interceptor/pkg/interceptors"
	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
	"github.com/r9s-ai/render-interceptor/pkg/renderinterceptor"
	"github.com/r9s-ai/render-interceptor/pkg/requestid"
)

func NewRouter(
	cfg *config.Config,
	views viewEngine,
	metrics *renderMetrics,
	accessLogger *log.Logger,
	accessLoggerColor bool,
	accessFormatter *logx.AccessLogFormatter,
) (*renderadapter.Adapter, error) {
	requestIDHeaderKey := requestid.ResolveHeaderKey(cfg.RequestID.Header)
	engine := gin.New()
	if views != nil {
		engine.HTMLRender = views
	}
	a := renderadapter.New(engine,
		renderadapter.WithRenderToString(renderadapter.GinRenderToString),
		renderadapter.WithObserver(dispatchObserver(metrics)),
	)
	a.Use(requestid.Middleware(requestIDHeaderKey))
	if cfg.Logging.AccessLog {
		a.Use(requestLoggerWithColor(accessLogger, accessLoggerColor, requestIDHeaderKey, accessFormatter))
	}
	a.Use(gin.Recovery())

	a.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if cfg.Metrics.Enabled && metrics != nil {
		a.GET(cfg.Metrics.Path, gin.WrapH(metrics.handler()))
	}
	a.GET("/_renderd/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"routes": a.Routes().List()})
	})

	if err := installInterceptors(a, cfg); err != nil {
		return nil, err
	}
	for _, rc := range cfg.Views.Routes {
		a.HandleRoute(engine, renderctx.Route{
			Method:   rc.Method,
			Path:     rc.Path,
			Template: rc.Template,
			Handler:  rc.Handler,
		}, configRouteHandler(rc))
	}
	return a, nil
}

// installInterceptors registers the configured interceptors globally. Render
// interceptors run outermost first, so the footer is added after sanitizing.
func installInterceptors(a *renderadapter.Adapter, cfg *config.Config) error {
	ic := cfg.Interceptors
	if ic.PreRender.Enabled {
		a.Use(interceptors.PreRender(a, ic.PreRender.Header, ic.PreRender.Prefix))
	}
	if ic.FancyView.Enabled {
		a.Use(renderinterceptor.Template(a, interceptors.FancyView{
			Header: ic.FancyView.Header,
			Prefix: ic.FancyView.Prefix,
		}))
	}
	if ic.Footer.Enabled {
		a.Use(renderinterceptor.Render(a, interceptors.Footer{
			HTML:          ic.Footer.HTML,
			HandlerSuffix: ic.Footer.HandlerSuffix,
		}))
	}
	if ic.Sanitize.Enabled {
		s, err := interceptors.NewSanitize(ic.Sanitize.Policy)
		if err != nil {
			return fmt.Errorf("init sanitize interceptor: %w", err)
		}
		a.Use(renderinterceptor.Render(a, s))
	}
	return nil
}

// configRouteHandler serves the route's static data plus request details.
func configRouteHandler(rc config.RouteConfig) renderadapter.ViewHandler {
	return func(c *gin.Context) (any, error) {
		data := gin.H{}
		for k, v := range rc.Data {
			data[k] = v
		}
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		query := make(map[string]string)
		for k, v := range c.Request.URL.Query() {
			query[k] = strings.Join(v, ",")
		}
		data["path"] = c.Request.URL.Path
		data["params"] = params
		data["query"] = query
		return data, nil
	}
}
