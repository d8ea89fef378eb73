package interceptors

import (
	"context"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderadapter"
	"github.com/r9s-ai/render-interceptor/pkg/renderinterceptor"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestInjectBeforeBodyEnd(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{"document", "<html><body>X</body></html>", "<html><body>X<f/></body></html>"},
		{"no body", "X", "X<f/>"},
		{"comment ignored", "<body>X<!-- </body> --></body>", "<body>X<!-- </body> --><f/></body>"},
		{"script ignored", `<body><script>var s="</body>";</script></body>`, `<body><script>var s="</body>";</script><f/></body>`},
		{"last wins", "<body>a</body><body>b</body>", "<body>a</body><body>b<f/></body>"},
		{"upper case", "<BODY>X</BODY>", "<BODY>X<f/></BODY>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InjectBeforeBodyEnd(tc.doc, "<f/>"); got != tc.want {
				t.Fatalf("expected %q, got=%q", tc.want, got)
			}
		})
	}
}

func TestViewPrefix(t *testing.T) {
	assert.Equal(t, "fancy/index", ViewPrefix("fancy", "index"))
	assert.Equal(t, "fancy/index", ViewPrefix("/fancy/", "index"))
	assert.Equal(t, "index", ViewPrefix(" ", "index"))
}

func TestSanitize(t *testing.T) {
	ugc, err := NewSanitize("ugc")
	require.NoError(t, err)
	doc := `<html><head><title>t</title></head><body><p onclick="x()">hi</p><script>alert(1)</script></body></html>`
	assert.Equal(t, `<html><head><title>t</title></head><body><p>hi</p></body></html>`, ugc.Clean(doc))

	strict, err := NewSanitize("STRICT")
	require.NoError(t, err)
	assert.Equal(t, "<body>x</body>", strict.Clean("<body><b>x</b></body>"))
	assert.Equal(t, "x", strict.Clean("<b>x</b>"))

	_, err = NewSanitize("lenient")
	assert.Error(t, err)

	out, err := interception.Intercept(context.Background(), "<body><i>y</i></body>", []interception.Interceptor{strict})
	require.NoError(t, err)
	assert.Equal(t, "<body>y</body>", out)
}

type demoPages struct{}

func (demoPages) WithFooter(*gin.Context) (any, error) { return gin.H{"Name": "one"}, nil }

func (demoPages) Plain(*gin.Context) (any, error) { return gin.H{"Name": "two"}, nil }

func newDemo(t *testing.T) *renderadapter.Adapter {
	t.Helper()
	engine := gin.New()
	tpl := template.Must(template.New("page").Parse(`<html><body>{{.Name}}</body></html>`))
	template.Must(tpl.New("fancy/page").Parse(`<html><body>This is fancy {{.Name}}</body></html>`))
	engine.SetHTMLTemplate(tpl)
	return renderadapter.New(engine, renderadapter.WithRenderToString(renderadapter.GinRenderToString))
}

func get(a *renderadapter.Adapter, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	a.ServeHTTP(w, req)
	return w
}

func TestFooter_GatedByHandlerSuffix(t *testing.T) {
	a := newDemo(t)
	a.Use(renderinterceptor.Render(a, Footer{HTML: "<div>This is a footer</div>", HandlerSuffix: "Footer"}))
	a.GETView("/footer", "page", demoPages{}.WithFooter)
	a.GETView("/plain", "page", demoPages{}.Plain)

	assert.Equal(t, "<html><body>one<div>This is a footer</div></body></html>", get(a, "/footer", nil).Body.String())
	assert.Equal(t, "<html><body>two</body></html>", get(a, "/plain", nil).Body.String())
}

func TestFancyView_HeaderGated(t *testing.T) {
	a := newDemo(t)
	a.Use(renderinterceptor.Template(a, FancyView{Header: "Use-Fancy-View"}))
	a.GETView("/", "page", demoPages{}.Plain)

	assert.Equal(t, "<html><body>two</body></html>", get(a, "/", nil).Body.String())
	fancy := get(a, "/", http.Header{"Use-Fancy-View": {"true"}})
	assert.Equal(t, "<html><body>This is fancy two</body></html>", fancy.Body.String())
}

func TestPreRender_SkipsRenderAndKeepsFooter(t *testing.T) {
	a := newDemo(t)
	a.Use(
		PreRender(a, "Use-Fancy-View", ""),
		renderinterceptor.Render(a, Footer{HTML: "<hr>"}),
	)
	a.GETView("/", "page", demoPages{}.Plain)

	w := get(a, "/", http.Header{"Use-Fancy-View": {"1"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "<html><body>This is fancy two<hr></body></html>", w.Body.String())
	assert.Equal(t, renderadapter.ContentTypeHTML, w.Header().Get("Content-Type"))

	w = get(a, "/", nil)
	assert.Equal(t, "<html><body>two<hr></body></html>", w.Body.String())
}

func TestPreRender_MissingViewFails(t *testing.T) {
	a := newDemo(t)
	a.Use(PreRender(a, "Use-Fancy-View", "nowhere"))
	a.GETView("/", "page", demoPages{}.Plain)

	w := get(a, "/", http.Header{"Use-Fancy-View": {"1"}})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
