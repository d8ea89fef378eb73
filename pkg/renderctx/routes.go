package renderctx

import (
	"net/http"
	"sort"
	"strings"
	"sync"
)

// Route is the render configuration of one registered route. A route with a
// non-empty Template is render-eligible.
type Route struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Template string `json:"template"`
	// Handler names the function that produces the view data.
	Handler string `json:"handler,omitempty"`
}

// Routes is the table of render-eligible routes, filled at route registration
// and read by interceptors on every request.
type Routes struct {
	mu     sync.RWMutex
	byPath map[string]Route
}

func NewRoutes() *Routes {
	return &Routes{byPath: map[string]Route{}}
}

func routeKey(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + path
}

// Add records route, replacing an earlier entry for the same method and path.
func (r *Routes) Add(route Route) {
	if r == nil || strings.TrimSpace(route.Template) == "" {
		return
	}
	if strings.TrimSpace(route.Method) == "" {
		route.Method = http.MethodGet
	}
	route.Method = strings.ToUpper(strings.TrimSpace(route.Method))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[routeKey(route.Method, route.Path)] = route
}

// Lookup finds the route for a request method and gin full path.
func (r *Routes) Lookup(method, fullPath string) (Route, bool) {
	if r == nil || fullPath == "" {
		return Route{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	route, ok := r.byPath[routeKey(method, fullPath)]
	return route, ok
}

// List returns all routes sorted by path then method.
func (r *Routes) List() []Route {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	out := make([]Route, 0, len(r.byPath))
	for _, route := range r.byPath {
		out = append(out, route)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Method < out[j].Method
	})
	return out
}
