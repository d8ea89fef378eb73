package renderserver

import (
	"fmt"
	"html/template"
	"log"

	"github.com/gin-gonic/gin/render"

	"github.com/r9s-ai/render-interceptor/pkg/config"
	"github.com/r9s-ai/render-interceptor/pkg/views/htmlview"
	"github.com/r9s-ai/render-interceptor/pkg/views/pongo2view"
)

// viewEngine is a gin HTML renderer whose templates can be reloaded in place.
type viewEngine interface {
	render.HTMLRender
	Reload() error
}

func newViewEngine(cfg *config.Config) (viewEngine, error) {
	switch cfg.Views.Engine {
	case config.EnginePongo2:
		globals := make(map[string]any, len(cfg.Views.Globals))
		for k, v := range cfg.Views.Globals {
			globals[k] = v
		}
		return pongo2view.New(
			pongo2view.WithDir(cfg.Views.Dir),
			pongo2view.WithExtension(cfg.Views.Extension),
			pongo2view.WithGlobals(globals),
			pongo2view.WithDebug(cfg.Views.Debug),
		)
	case config.EngineHTML:
		globals := cfg.Views.Globals
		return htmlview.New(cfg.Views.Dir, cfg.Views.Extension, template.FuncMap{
			"global": func(name string) string { return globals[name] },
		})
	default:
		return nil, fmt.Errorf("unknown views.engine %q", cfg.Views.Engine)
	}
}

func reloadViews(views viewEngine, m *renderMetrics, dir, trigger string) error {
	err := views.Reload()
	m.observeReload(trigger, err)
	if err != nil {
		log.Printf("reload failed (views %s): views_dir=%q err=%v", trigger, dir, err)
		return err
	}
	log.Printf("reload ok (views %s): views_dir=%q", trigger, dir)
	return nil
}
