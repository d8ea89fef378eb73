package renderadapter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
)

// ContentTypeHTML is set on skip-render responses and on replies that carry
// no content type of their own.
const ContentTypeHTML = "text/html; charset=utf-8"

// Transport is the part of the HTTP layer the dispatcher writes through.
type Transport interface {
	// Render renders view with the engine's view renderer and writes it.
	Render(c *gin.Context, view string, options any) error
	// Reply writes body as the response body.
	Reply(c *gin.Context, body string) error
	SetHeader(c *gin.Context, name, value string)
}

// RenderToString produces the HTML for view without writing the response.
type RenderToString func(ctx context.Context, t Transport, view string, options any, c *gin.Context) (string, error)

// StringRenderer is implemented by render instances that can render into a
// string directly.
type StringRenderer interface {
	RenderString() (string, error)
}

// GinTransport implements Transport over a gin engine and its HTMLRender.
type GinTransport struct {
	engine *gin.Engine
}

func NewGinTransport(engine *gin.Engine) *GinTransport {
	return &GinTransport{engine: engine}
}

// HTMLRender returns the view renderer currently configured on the engine.
func (t *GinTransport) HTMLRender() render.HTMLRender {
	if t == nil || t.engine == nil {
		return nil
	}
	return t.engine.HTMLRender
}

func (t *GinTransport) Render(c *gin.Context, view string, options any) error {
	hr := t.HTMLRender()
	if hr == nil {
		return ErrNoViewEngine
	}
	inst := hr.Instance(view, options)
	if h, ok := inst.(render.HTML); ok && h.Template == nil {
		return ErrNoViewEngine
	}
	return inst.Render(c.Writer)
}

func (t *GinTransport) Reply(c *gin.Context, body string) error {
	if c.Writer.Header().Get("Content-Type") == "" {
		c.Header("Content-Type", ContentTypeHTML)
	}
	_, err := c.Writer.WriteString(body)
	return err
}

func (t *GinTransport) SetHeader(c *gin.Context, name, value string) {
	c.Header(name, value)
}

// GinRenderToString renders through the transport's HTMLRender into a buffer.
// It handles gin's html/template renderers and any StringRenderer instance.
func GinRenderToString(_ context.Context, t Transport, view string, options any, _ *gin.Context) (string, error) {
	src, ok := t.(interface{ HTMLRender() render.HTMLRender })
	if !ok {
		return "", fmt.Errorf("renderadapter: transport %T cannot render to string", t)
	}
	hr := src.HTMLRender()
	if hr == nil {
		return "", ErrNoViewEngine
	}
	switch inst := hr.Instance(view, options).(type) {
	case StringRenderer:
		return inst.RenderString()
	case render.HTML:
		if inst.Template == nil {
			return "", ErrNoViewEngine
		}
		var buf bytes.Buffer
		var err error
		if inst.Name == "" {
			err = inst.Template.Execute(&buf, inst.Data)
		} else {
			err = inst.Template.ExecuteTemplate(&buf, inst.Name, inst.Data)
		}
		if err != nil {
			return "", err
		}
		return buf.String(), nil
	default:
		return "", fmt.Errorf("renderadapter: view renderer %T cannot render to string", inst)
	}
}
