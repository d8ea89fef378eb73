package renderadapter

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r9s-ai/render-interceptor/pkg/interception"
	"github.com/r9s-ai/render-interceptor/pkg/renderctx"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type call struct {
	op    string
	view  string
	body  string
	name  string
	value string
}

// recordingTransport records every write the dispatcher makes.
type recordingTransport struct {
	calls     []call
	renderErr error
}

func (t *recordingTransport) Render(_ *gin.Context, view string, _ any) error {
	t.calls = append(t.calls, call{op: "render", view: view})
	return t.renderErr
}

func (t *recordingTransport) Reply(_ *gin.Context, body string) error {
	t.calls = append(t.calls, call{op: "reply", body: body})
	return nil
}

func (t *recordingTransport) SetHeader(_ *gin.Context, name, value string) {
	t.calls = append(t.calls, call{op: "header", name: name, value: value})
}

func appendSuffix(suffix string) interception.Interceptor {
	return interception.InterceptorFunc(func(_ context.Context, next interception.Handler) (interception.Stream, error) {
		return interception.Map(next.Handle(), func(v string) string { return v + suffix }), nil
	})
}

// suffixInterceptor is comparable, unlike InterceptorFunc.
type suffixInterceptor struct{ s string }

func (i *suffixInterceptor) RenderIntercept(_ context.Context, next interception.Handler) (interception.Stream, error) {
	return interception.Map(next.Handle(), func(v string) string { return v + i.s }), nil
}

func footer(html string) interception.Interceptor {
	return interception.InterceptorFunc(func(_ context.Context, next interception.Handler) (interception.Stream, error) {
		return interception.Map(next.Handle(), func(v string) string {
			i := strings.LastIndex(v, "</body>")
			if i < 0 {
				return v + html
			}
			return v[:i] + html + v[i:]
		}), nil
	})
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func TestRender_SkipRenderNonStringFailsWithoutWrites(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, w := newTestContext()
	resp := renderctx.FromGin(c)
	resp.SkipRender = true
	a.RegisterRenderInterception(appendSuffix("!"), resp)

	_, err := a.Render(c, "any", map[string]string{"not": "a string"})
	if !errors.Is(err, ErrSkipRenderNotString) {
		t.Fatalf("expected ErrSkipRenderNotString, got=%v", err)
	}
	var typed *SkipRenderNotStringError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, "map[string]string", typed.Type)
	if len(tr.calls) != 0 {
		t.Fatalf("expected no transport calls, got=%+v", tr.calls)
	}
	if c.Writer.Written() || w.Body.Len() != 0 {
		t.Fatalf("expected nothing written")
	}
}

func TestRender_SkipRenderStringReplyVerbatim(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	renderctx.FromGin(c).SkipRender = true

	strategy, err := a.Render(c, "ignored", "<p>pre</p>")
	require.NoError(t, err)
	assert.Equal(t, StrategySkipRender, strategy)
	assert.Equal(t, []call{
		{op: "header", name: "Content-Type", value: "text/html; charset=utf-8"},
		{op: "reply", body: "<p>pre</p>"},
	}, tr.calls)
}

func TestRender_SkipRenderIgnoresTemplateInterceptors(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	resp := renderctx.FromGin(c)
	resp.SkipRender = true
	a.RegisterTemplateInterception(interception.InterceptorFunc(func(context.Context, interception.Handler) (interception.Stream, error) {
		t.Fatalf("template interceptor must not run on skip-render")
		return nil, nil
	}), resp)

	_, err := a.Render(c, "v", "<p/>")
	require.NoError(t, err)
}

func TestRender_SkipRenderWithRenderInterceptors(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	resp := renderctx.FromGin(c)
	resp.SkipRender = true
	a.RegisterRenderInterception(footer("<footer/>"), resp)

	strategy, err := a.Render(c, "v", "<body>X</body>")
	require.NoError(t, err)
	assert.Equal(t, StrategyIntercepted, strategy)
	require.Len(t, tr.calls, 2)
	assert.Equal(t, call{op: "reply", body: "<body>X<footer/></body>"}, tr.calls[1])
}

func TestRender_TemplateInterceptorsRewriteView(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	resp := renderctx.FromGin(c)
	a.RegisterTemplateInterception(appendSuffix("2"), resp)
	a.RegisterTemplateInterception(appendSuffix("1"), resp)

	strategy, err := a.Render(c, "X", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyNative, strategy)
	assert.Equal(t, []call{{op: "render", view: "X12"}}, tr.calls)
}

func TestRender_RenderInterceptorsWithoutRenderToStringFallBackToNative(t *testing.T) {
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	a.RegisterRenderInterception(footer("<footer/>"), renderctx.FromGin(c))

	strategy, err := a.Render(c, "home", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyNative, strategy)
	assert.Equal(t, []call{{op: "render", view: "home"}}, tr.calls)
}

func TestRender_InterceptedRepliesWithFooter(t *testing.T) {
	tr := &recordingTransport{}
	var gotView string
	a := New(nil, WithTransport(tr), WithRenderToString(func(_ context.Context, _ Transport, view string, _ any, _ *gin.Context) (string, error) {
		gotView = view
		return "<body>X</body>", nil
	}))
	c, _ := newTestContext()
	resp := renderctx.FromGin(c)
	a.RegisterTemplateInterception(appendSuffix(".v2"), resp)
	a.RegisterRenderInterception(footer("<footer>F</footer>"), resp)

	strategy, err := a.Render(c, "home", nil)
	require.NoError(t, err)
	assert.Equal(t, StrategyIntercepted, strategy)
	assert.Equal(t, "home.v2", gotView)
	assert.Equal(t, []call{{op: "reply", body: "<body>X<footer>F</footer></body>"}}, tr.calls)
}

func TestRender_PropagatesUpstreamErrors(t *testing.T) {
	boom := errors.New("template exploded")
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr), WithRenderToString(func(context.Context, Transport, string, any, *gin.Context) (string, error) {
		return "", boom
	}))
	c, _ := newTestContext()
	a.RegisterRenderInterception(footer("f"), renderctx.FromGin(c))

	_, err := a.Render(c, "home", nil)
	if err != boom {
		t.Fatalf("expected upstream error unchanged, got=%v", err)
	}
	assert.Empty(t, tr.calls)

	tr2 := &recordingTransport{renderErr: boom}
	a2 := New(nil, WithTransport(tr2))
	c2, _ := newTestContext()
	_, err = a2.Render(c2, "home", nil)
	if err != boom {
		t.Fatalf("expected native render error unchanged, got=%v", err)
	}
}

func TestRender_InterceptorErrorAbortsWithoutOutput(t *testing.T) {
	boom := errors.New("interceptor failed")
	tr := &recordingTransport{}
	a := New(nil, WithTransport(tr))
	c, _ := newTestContext()
	a.RegisterTemplateInterception(interception.InterceptorFunc(func(context.Context, interception.Handler) (interception.Stream, error) {
		return nil, boom
	}), renderctx.FromGin(c))

	_, err := a.Render(c, "home", nil)
	if !errors.Is(err, boom) {
		t.Fatalf("expected interceptor error, got=%v", err)
	}
	assert.Empty(t, tr.calls)
}

func TestRegistration_AppendsInOrder(t *testing.T) {
	a := New(nil)
	c, _ := newTestContext()
	resp := renderctx.FromGin(c)
	i1, i2, i3 := &suffixInterceptor{"1"}, &suffixInterceptor{"2"}, &suffixInterceptor{"3"}

	a.RegisterRenderInterception(i1, resp)
	a.RegisterRenderInterception(i2, resp)
	require.Len(t, resp.RenderInterceptors, 2)
	assertSameInterceptors(t, []interception.Interceptor{i1, i2}, resp.RenderInterceptors)

	a.RegisterRenderInterception(i3, resp)
	assertSameInterceptors(t, []interception.Interceptor{i1, i2, i3}, resp.RenderInterceptors)
	assert.Empty(t, resp.TemplateInterceptors)
}

func assertSameInterceptors(t *testing.T, want, got []interception.Interceptor) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("expected %d interceptors, got=%d", len(want), len(got))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Fatalf("interceptor %d differs", i)
		}
	}
}

func TestObserver_ReceivesDispatch(t *testing.T) {
	tr := &recordingTransport{}
	var got []Dispatch
	a := New(nil, WithTransport(tr), WithObserver(func(_ *gin.Context, d Dispatch) {
		got = append(got, d)
	}))
	c, _ := newTestContext()
	a.RegisterTemplateInterception(appendSuffix("-b"), renderctx.FromGin(c))

	_, err := a.Render(c, "a", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].View)
	assert.Equal(t, "a-b", got[0].FinalView)
	assert.Equal(t, StrategyNative, got[0].Strategy)
	assert.Equal(t, 1, got[0].TemplateInterceptors)
	assert.NoError(t, got[0].Err)
}

func newHTMLEngine(t *testing.T) *gin.Engine {
	t.Helper()
	engine := gin.New()
	tpl := template.Must(template.New("home").Parse(`<body>{{.Name}}</body>`))
	template.Must(tpl.New("home.fancy").Parse(`<body><b>{{.Name}}</b></body>`))
	engine.SetHTMLTemplate(tpl)
	return engine
}

func TestGinRenderToString(t *testing.T) {
	engine := newHTMLEngine(t)
	tr := NewGinTransport(engine)

	out, err := GinRenderToString(context.Background(), tr, "home.fancy", gin.H{"Name": "ada"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<body><b>ada</b></body>", out)

	_, err = GinRenderToString(context.Background(), NewGinTransport(gin.New()), "home", nil, nil)
	assert.ErrorIs(t, err, ErrNoViewEngine)

	_, err = GinRenderToString(context.Background(), &recordingTransport{}, "home", nil, nil)
	assert.Error(t, err)
}

func TestGinTransport_RenderAndReply(t *testing.T) {
	engine := newHTMLEngine(t)
	tr := NewGinTransport(engine)

	c, w := newTestContext()
	require.NoError(t, tr.Render(c, "home", gin.H{"Name": "x"}))
	assert.Equal(t, "<body>x</body>", w.Body.String())
	assert.Equal(t, ContentTypeHTML, w.Header().Get("Content-Type"))

	c, w = newTestContext()
	c.Header("Content-Type", "text/plain")
	require.NoError(t, tr.Reply(c, "raw"))
	assert.Equal(t, "raw", w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))

	c, _ = newTestContext()
	assert.ErrorIs(t, NewGinTransport(gin.New()).Render(c, "home", nil), ErrNoViewEngine)
}
