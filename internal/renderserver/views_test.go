package renderserver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewViewEngine_Pongo2Debug(t *testing.T) {
	for _, debug := range []bool{false, true} {
		dir := writeViews(t, map[string]string{"page.html": "v1"})
		cfg := parseConfig(t, "views:\n  dir: \""+dir+"\"\n  engine: pongo2\n")
		cfg.Views.Debug = debug

		views, err := newViewEngine(cfg)
		require.NoError(t, err)
		out, err := renderView(views, "page")
		require.NoError(t, err)
		require.Equal(t, "v1", out)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("v2"), 0o600))
		out, err = renderView(views, "page")
		require.NoError(t, err)
		want := "v1"
		if debug {
			want = "v2"
		}
		require.Equal(t, want, out, "debug=%v", debug)
	}
}
