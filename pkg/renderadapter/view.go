package renderadapter

import (
	"net/http"
	"reflect"
	"runtime"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// ViewHandler produces the data a template is rendered with.
type ViewHandler func(c *gin.Context) (any, error)

// HandleView registers a render-eligible route. middleware runs before h and
// is where route-level interceptors go.
func (a *Adapter) HandleView(method, path, template string, h ViewHandler, middleware ...gin.HandlerFunc) gin.IRoutes {
	return a.HandleRoute(a.engine, renderctx.Route{
		Method:   method,
		Path:     path,
		Template: template,
		Handler:  nameOfFunction(h),
	}, h, middleware...)
}

func (a *Adapter) GETView(path, template string, h ViewHandler, middleware ...gin.HandlerFunc) gin.IRoutes {
	return a.HandleView(http.MethodGet, path, template, h, middleware...)
}

// HandleRoute registers route on group. route.Path is relative to the group;
// the route table records the absolute path gin matches on.
func (a *Adapter) HandleRoute(group gin.IRouter, route renderctx.Route, h ViewHandler, middleware ...gin.HandlerFunc) gin.IRoutes {
	if route.Method == "" {
		route.Method = http.MethodGet
	}
	if route.Handler == "" {
		route.Handler = nameOfFunction(h)
	}
	relative := route.Path
	if rg, ok := group.(*gin.RouterGroup); ok {
		route.Path = joinPaths(rg.BasePath(), relative)
	}
	a.routes.Add(route)

	handlers := make([]gin.HandlerFunc, 0, len(middleware)+1)
	handlers = append(handlers, middleware...)
	handlers = append(handlers, a.view(route.Template, h))
	return group.Handle(route.Method, relative, handlers...)
}

func (a *Adapter) view(template string, h ViewHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h(c)
		if c.IsAborted() || c.Writer.Written() {
			if err != nil {
				_ = c.Error(err)
			}
			return
		}
		if err == nil {
			result, err = renderctx.FromGin(c).ApplyResultMappers(requestContext(c), result)
		}
		if err == nil {
			_, err = a.Render(c, template, result)
		}
		if err == nil {
			return
		}
		_ = c.Error(err)
		if c.Writer.Written() {
			c.Abort()
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

func nameOfFunction(f any) string {
	if f == nil {
		return ""
	}
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	return runtime.FuncForPC(v.Pointer()).Name()
}

func joinPaths(base, relative string) string {
	if relative == "" {
		return base
	}
	if base == "" || base == "/" {
		if relative[0] != '/' {
			return "/" + relative
		}
		return relative
	}
	out := base
	if out[len(out)-1] == '/' {
		out = out[:len(out)-1]
	}
	if relative[0] != '/' {
		out += "/"
	}
	return out + relative
}
