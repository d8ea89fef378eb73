// Package pongo2view is a gin HTML renderer backed by a pongo2 template set.
package pongo2view

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/flosch/pongo2/v6"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

const DefaultExtension = ".html"

type Option func(*config)

type config struct {
	dir       string
	files     fs.FS
	extension string
	globals   map[string]any
	debug     bool
}

// WithDir loads templates from a directory on disk.
func WithDir(dir string) Option {
	return func(cfg *config) { cfg.dir = strings.TrimSpace(dir) }
}

// WithFS loads templates from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) { cfg.files = files }
}

// WithExtension sets the suffix appended to view names without one.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		ext = strings.TrimSpace(ext)
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		cfg.extension = ext
	}
}

func WithGlobals(globals map[string]any) Option {
	return func(cfg *config) {
		if cfg.globals == nil {
			cfg.globals = make(map[string]any, len(globals))
		}
		for k, v := range globals {
			cfg.globals[strings.TrimSpace(k)] = v
		}
	}
}

// WithDebug recompiles templates on every render.
func WithDebug(debug bool) Option {
	return func(cfg *config) { cfg.debug = debug }
}

// Engine implements gin's render.HTMLRender.
type Engine struct {
	set       *pongo2.TemplateSet
	extension string
}

var _ render.HTMLRender = (*Engine)(nil)

func New(options ...Option) (*Engine, error) {
	cfg := &config{extension: DefaultExtension}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.dir == "" && cfg.files == nil {
		return nil, errors.New("pongo2view: need a template dir or fs.FS")
	}

	var loaders []pongo2.TemplateLoader
	if cfg.dir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.dir)
		if err != nil {
			return nil, fmt.Errorf("pongo2view: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.files != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.files))
	}

	set := pongo2.NewSet("renderd", loaders...)
	set.Debug = cfg.debug
	if len(cfg.globals) > 0 {
		set.Globals.Update(pongo2.Context(cfg.globals))
	}
	return &Engine{set: set, extension: cfg.extension}, nil
}

// Instance returns a renderer for name. Its RenderString lets the
// render-to-string path use it without a buffer of its own.
func (e *Engine) Instance(name string, data any) render.Render {
	return &HTML{engine: e, name: name, data: data}
}

// RenderString renders name with data.
func (e *Engine) RenderString(name string, data any) (string, error) {
	if e == nil || e.set == nil {
		return "", errors.New("pongo2view: engine is nil")
	}
	file := name
	if !strings.HasSuffix(file, e.extension) {
		file += e.extension
	}
	tpl, err := e.set.FromCache(file)
	if err != nil {
		return "", fmt.Errorf("pongo2view: load template %q: %w", file, err)
	}
	ctx, err := toContext(data)
	if err != nil {
		return "", fmt.Errorf("pongo2view: convert data: %w", err)
	}
	out, err := tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("pongo2view: execute template %q: %w", file, err)
	}
	return out, nil
}

// Reload drops every compiled template.
func (e *Engine) Reload() error {
	e.set.CleanCache()
	return nil
}

// HTML is the render.Render returned by Instance.
type HTML struct {
	engine *Engine
	name   string
	data   any
}

func (r *HTML) Render(w http.ResponseWriter) error {
	out, err := r.RenderString()
	if err != nil {
		return err
	}
	r.WriteContentType(w)
	_, err = io.WriteString(w, out)
	return err
}

func (r *HTML) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{"text/html; charset=utf-8"}
	}
}

func (r *HTML) RenderString() (string, error) {
	return r.engine.RenderString(r.name, r.data)
}

func toContext(data any) (pongo2.Context, error) {
	switch v := data.(type) {
	case nil:
		return pongo2.Context{}, nil
	case pongo2.Context:
		return v, nil
	case gin.H:
		return pongo2.Context(v), nil
	case map[string]any:
		return pongo2.Context(v), nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		out := pongo2.Context{}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, err
		}
		return out, nil
	}
}
