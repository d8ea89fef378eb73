package renderserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/config"
	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

const renderOncePath = "/_renderd/render"

// RenderRequest describes one offline render.
type RenderRequest struct {
	Template string
	// Handler is the handler name interceptors see, e.g. "HomeFooter".
	Handler string
	Data    map[string]any
	Header  http.Header
}

// RenderResult is what a client would have received.
type RenderResult struct {
	Status int
	Header http.Header
	Body   string
}

// RenderOnce renders req through the configured views and interceptors
// without opening a listener. A failed render returns the result together
// with the render error.
func RenderOnce(cfg *config.Config, req RenderRequest) (RenderResult, error) {
	views, err := newViewEngine(cfg)
	if err != nil {
		return RenderResult{}, err
	}
	return renderOnce(cfg, views, req)
}

// RouteCheck is the outcome of rendering one configured route.
type RouteCheck struct {
	Route  config.RouteConfig
	Status int
	Err    error
}

// CheckReport is the outcome of CheckRoutes. RenderToString reports whether
// the adapter can run render interceptors; without it every route renders
// natively.
type CheckReport struct {
	RenderToString bool
	Routes         []RouteCheck
}

// Failed counts routes that did not render.
func (r CheckReport) Failed() int {
	n := 0
	for _, c := range r.Routes {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// CheckRoutes renders every configured route once with its static data.
func CheckRoutes(cfg *config.Config) (CheckReport, error) {
	views, err := newViewEngine(cfg)
	if err != nil {
		return CheckReport{}, err
	}
	a, err := offlineRouter(cfg, views)
	if err != nil {
		return CheckReport{}, err
	}
	report := CheckReport{
		RenderToString: a.CanRenderToString(),
		Routes:         make([]RouteCheck, 0, len(cfg.Views.Routes)),
	}
	for _, rc := range cfg.Views.Routes {
		res, err := renderOnce(cfg, views, RenderRequest{
			Template: rc.Template,
			Handler:  rc.Handler,
			Data:     rc.Data,
		})
		if err == nil && res.Status >= http.StatusBadRequest {
			err = fmt.Errorf("status %d", res.Status)
		}
		report.Routes = append(report.Routes, RouteCheck{Route: rc, Status: res.Status, Err: err})
	}
	return report, nil
}

// offlineRouter builds a router without access log, metrics or configured
// routes.
func offlineRouter(cfg *config.Config, views viewEngine) (*renderadapter.Adapter, error) {
	local := *cfg
	local.Logging.AccessLog = false
	local.Metrics.Enabled = false
	local.Views.Routes = nil
	return NewRouter(&local, views, nil, nil, false, nil)
}

func renderOnce(cfg *config.Config, views viewEngine, req RenderRequest) (RenderResult, error) {
	a, err := offlineRouter(cfg, views)
	if err != nil {
		return RenderResult{}, err
	}
	data := gin.H{}
	for k, v := range req.Data {
		data[k] = v
	}
	var renderErr error
	a.HandleRoute(a.Engine(), renderctx.Route{
		Method:   http.MethodGet,
		Path:     renderOncePath,
		Template: req.Template,
		Handler:  req.Handler,
	}, func(*gin.Context) (any, error) {
		return data, nil
	}, func(c *gin.Context) {
		c.Next()
		if last := c.Errors.Last(); last != nil {
			renderErr = last.Err
		}
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, renderOncePath, nil)
	for k, v := range req.Header {
		r.Header[k] = v
	}
	a.ServeHTTP(w, r)
	return RenderResult{Status: w.Code, Header: w.Header(), Body: w.Body.String()}, renderErr
}
