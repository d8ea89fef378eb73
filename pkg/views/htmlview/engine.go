// Package htmlview is a gin HTML renderer over html/template that can be
// reloaded while serving.
package htmlview

import (
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin/render"
)

const DefaultExtension = ".html"

// Engine names each template by its slash path relative to the root, so
// "fancy/index.html" and "index.html" coexist.
type Engine struct {
	files     fs.FS
	extension string
	funcs     template.FuncMap
	tpl       atomic.Pointer[template.Template]
}

var _ render.HTMLRender = (*Engine)(nil)

// New loads every file under dir ending in extension.
func New(dir, extension string, funcs template.FuncMap) (*Engine, error) {
	return NewFS(os.DirFS(dir), extension, funcs)
}

func NewFS(files fs.FS, extension string, funcs template.FuncMap) (*Engine, error) {
	extension = strings.TrimSpace(extension)
	if extension == "" {
		extension = DefaultExtension
	}
	if !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	e := &Engine{files: files, extension: extension, funcs: funcs}
	if err := e.Reload(); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload parses the templates again. On error the previous set stays live.
func (e *Engine) Reload() error {
	root := template.New("").Funcs(e.funcs)
	err := fs.WalkDir(e.files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != e.extension {
			return nil
		}
		b, err := fs.ReadFile(e.files, p)
		if err != nil {
			return err
		}
		if _, err := root.New(p).Parse(string(b)); err != nil {
			return fmt.Errorf("htmlview: parse %s: %w", p, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.tpl.Store(root)
	return nil
}

// Names lists the loaded templates.
func (e *Engine) Names() []string {
	var out []string
	for _, t := range e.tpl.Load().Templates() {
		if t.Name() != "" {
			out = append(out, t.Name())
		}
	}
	return out
}

func (e *Engine) Instance(name string, data any) render.Render {
	if !strings.HasSuffix(name, e.extension) {
		name += e.extension
	}
	return render.HTML{Template: e.tpl.Load(), Name: name, Data: data}
}
