package renderadapter

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

// Adapter wraps a gin engine. Everything but rendering passes through to the
// engine unchanged; view routes render through Render.
type Adapter struct {
	engine         *gin.Engine
	transport      Transport
	renderToString RenderToString
	observer       Observer
	routes         *renderctx.Routes
}

type Option func(*Adapter)

// WithTransport replaces the GinTransport built from the engine.
func WithTransport(t Transport) Option {
	return func(a *Adapter) {
		if t != nil {
			a.transport = t
		}
	}
}

// WithRenderToString enables render interception for non skip-render
// responses.
func WithRenderToString(fn RenderToString) Option {
	return func(a *Adapter) { a.renderToString = fn }
}

func WithObserver(fn Observer) Option {
	return func(a *Adapter) { a.observer = fn }
}

// New wraps engine. A nil engine is replaced by gin.New().
func New(engine *gin.Engine, opts ...Option) *Adapter {
	if engine == nil {
		engine = gin.New()
	}
	a := &Adapter{
		engine: engine,
		routes: renderctx.NewRoutes(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	if a.transport == nil {
		a.transport = NewGinTransport(engine)
	}
	return a
}

// RegisterTemplateInterception appends i to the response's template interceptors.
func (a *Adapter) RegisterTemplateInterception(i interception.Interceptor, resp *renderctx.Response) {
	resp.TemplateInterceptors = append(resp.TemplateInterceptors, i)
}

// RegisterRenderInterception appends i to the response's render interceptors.
func (a *Adapter) RegisterRenderInterception(i interception.Interceptor, resp *renderctx.Response) {
	resp.RenderInterceptors = append(resp.RenderInterceptors, i)
}

// Routes is the table of render-eligible routes registered on the adapter.
func (a *Adapter) Routes() *renderctx.Routes { return a.routes }

func (a *Adapter) Engine() *gin.Engine { return a.engine }

// CanRenderToString reports whether a render-to-string capability is configured.
func (a *Adapter) CanRenderToString() bool { return a.renderToString != nil }

func (a *Adapter) Use(middleware ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.Use(middleware...)
}

func (a *Adapter) Group(relativePath string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(relativePath, handlers...)
}

func (a *Adapter) Handle(method, path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.Handle(method, path, handlers...)
}

func (a *Adapter) GET(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.GET(path, handlers...)
}

func (a *Adapter) POST(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.POST(path, handlers...)
}

func (a *Adapter) PUT(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.PUT(path, handlers...)
}

func (a *Adapter) PATCH(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.PATCH(path, handlers...)
}

func (a *Adapter) DELETE(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.DELETE(path, handlers...)
}

func (a *Adapter) HEAD(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.HEAD(path, handlers...)
}

func (a *Adapter) OPTIONS(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.OPTIONS(path, handlers...)
}

func (a *Adapter) Any(path string, handlers ...gin.HandlerFunc) gin.IRoutes {
	return a.engine.Any(path, handlers...)
}

func (a *Adapter) NoRoute(handlers ...gin.HandlerFunc) {
	a.engine.NoRoute(handlers...)
}

func (a *Adapter) Static(relativePath, root string) gin.IRoutes {
	return a.engine.Static(relativePath, root)
}

func (a *Adapter) StaticFS(relativePath string, fs http.FileSystem) gin.IRoutes {
	return a.engine.StaticFS(relativePath, fs)
}

func (a *Adapter) StaticFile(relativePath, filepath string) gin.IRoutes {
	return a.engine.StaticFile(relativePath, filepath)
}

func (a *Adapter) LoadHTMLGlob(pattern string) {
	a.engine.LoadHTMLGlob(pattern)
}

func (a *Adapter) LoadHTMLFiles(files ...string) {
	a.engine.LoadHTMLFiles(files...)
}

func (a *Adapter) SetHTMLTemplate(t *template.Template) {
	a.engine.SetHTMLTemplate(t)
}

func (a *Adapter) SetFuncMap(funcMap template.FuncMap) {
	a.engine.SetFuncMap(funcMap)
}

// SetHTMLRender installs a view engine.
func (a *Adapter) SetHTMLRender(r render.HTMLRender) {
	a.engine.HTMLRender = r
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	a.engine.ServeHTTP(w, req)
}

func (a *Adapter) Run(addr ...string) error {
	return a.engine.Run(addr...)
}
