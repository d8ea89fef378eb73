package requestid

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func TestGenFormat(t *testing.T) {
	id := Gen()
	u, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("unexpected id format: %q err=%v", id, err)
	}
	if u.Version() != 7 {
		t.Fatalf("expected version 7, got=%d", u.Version())
	}
	if Gen() == id {
		t.Fatalf("expected distinct ids")
	}
}

func TestResolveHeaderKey(t *testing.T) {
	if got := ResolveHeaderKey("  "); got != DefaultHeaderKey {
		t.Fatalf("ResolveHeaderKey(blank)=%q", got)
	}
	if got := ResolveHeaderKey(" X-Trace "); got != "X-Trace" {
		t.Fatalf("ResolveHeaderKey=%q", got)
	}
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(""))
	var seen string
	r.GET("/", func(c *gin.Context) {
		seen = c.GetString(DefaultHeaderKey)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultHeaderKey, "abc")
	r.ServeHTTP(w, req)
	if seen != "abc" || w.Header().Get(DefaultHeaderKey) != "abc" {
		t.Fatalf("expected inbound id kept, seen=%q header=%q", seen, w.Header().Get(DefaultHeaderKey))
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(DefaultHeaderKey, strings.Repeat("x", 200))
	r.ServeHTTP(w, req)
	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("expected generated id, got=%q", seen)
	}
}
