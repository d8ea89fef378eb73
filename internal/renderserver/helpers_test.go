package renderserver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/render-interceptor/pkg/config"
	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func writeViews(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatalf("write view %s: %v", name, err)
		}
	}
	return dir
}

func parseConfig(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

var demoViews = map[string]string{
	"index.html":         `<html><body>{{ index . "title" }}</body></html>`,
	"fancy/index.html":   `<html><body>This is fancy {{ index . "title" }}</body></html>`,
	"user.html":          `<html><body>user {{ index .params "id" }}</body></html>`,
	"fancy/user.html":    `<html><body>fancy user</body></html>`,
	"comment.html":       `<html><body><p onclick="x()">{{ index . "title" }}</p></body></html>`,
	"fancy/comment.html": `<html><body>fancy comment</body></html>`,
	"site.html":          `<html><body>{{ global "site" }}</body></html>`,
	"notes.txt":          `not a template`,
}

func renderView(views viewEngine, name string) (string, error) {
	engine := gin.New()
	engine.HTMLRender = views
	t := renderadapter.NewGinTransport(engine)
	return renderadapter.GinRenderToString(context.Background(), t, name, nil, nil)
}
