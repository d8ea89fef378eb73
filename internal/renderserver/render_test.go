package renderserver

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderOnce(t *testing.T) {
	cfg := parseConfig(t, demoConfig(t, `
interceptors:
  footer:
    enabled: true
    html: "<div>f</div>"
  fancy_view:
    enabled: true
`))

	res, err := RenderOnce(cfg, RenderRequest{
		Template: "index",
		Handler:  "HomeFooter",
		Data:     map[string]any{"title": "Offline"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, "<html><body>Offline<div>f</div></body></html>", res.Body)

	res, err = RenderOnce(cfg, RenderRequest{
		Template: "index",
		Handler:  "Plain",
		Data:     map[string]any{"title": "X"},
		Header:   http.Header{"Use-Fancy-View": {"1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "<html><body>This is fancy X</body></html>", res.Body)
}

func TestRenderOnce_MissingTemplate(t *testing.T) {
	cfg := parseConfig(t, demoConfig(t, ""))

	res, err := RenderOnce(cfg, RenderRequest{Template: "nowhere"})
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Status)
}

func TestCheckRoutes(t *testing.T) {
	dir := writeViews(t, map[string]string{"index.html": `<body>{{ index . "title" }}</body>`})
	cfg := parseConfig(t, `
views:
  dir: "`+dir+`"
  routes:
    - path: /
      template: index
      data:
        title: "ok"
    - path: /gone
      template: gone
`)

	report, err := CheckRoutes(cfg)
	require.NoError(t, err)
	assert.True(t, report.RenderToString)
	assert.Equal(t, 1, report.Failed())
	checks := report.Routes
	require.Len(t, checks, 2)
	assert.NoError(t, checks[0].Err)
	assert.Equal(t, http.StatusOK, checks[0].Status)
	assert.Error(t, checks[1].Err)
	assert.Equal(t, "/gone", checks[1].Route.Path)
}
