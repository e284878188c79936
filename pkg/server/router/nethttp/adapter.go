// Package nethttp implements router.Router on net/http with a small segment matcher.
package nethttp

import (
	"net/http"
	"strings"
	"sync"

	"github.com/mealboard/marketplace/pkg/server/router"
)

// Router implements router.Router using net/http.
type Router struct {
	table      *routeTable
	middleware []router.MiddlewareFunc
	prefix     string
}

type routeTable struct {
	mu      sync.RWMutex
	routes  []route
	options map[string]struct{}
}

type route struct {
	method   string
	segments []string
	handler  router.HandlerFunc
}

// NewRouter creates a new net/http router.
func NewRouter() *Router {
	return &Router{table: &routeTable{options: make(map[string]struct{})}}
}

func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.add(http.MethodGet, path, handler, middleware)
}

func (r *Router) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.add(http.MethodPost, path, handler, middleware)
}

func (r *Router) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.add(http.MethodPut, path, handler, middleware)
}

func (r *Router) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.add(http.MethodDelete, path, handler, middleware)
}

func (r *Router) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.add(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	combined := append(append([]router.MiddlewareFunc{}, r.middleware...), middleware...)
	return &Router{table: r.table, middleware: combined, prefix: r.prefix + prefix}
}

// Use applies middleware to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.table.mu.RLock()
	routes := r.table.routes
	r.table.mu.RUnlock()

	path := split(req.URL.Path)
	pathMatched := false
	for _, rt := range routes {
		params, ok := match(rt.segments, path)
		if !ok {
			continue
		}
		pathMatched = true
		if rt.method != req.Method {
			continue
		}
		router.Execute(rt.handler, router.NewContext(w, req, func(name string) string { return params[name] }))
		return
	}

	if pathMatched {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	http.NotFound(w, req)
}

func (r *Router) add(method, path string, handler router.HandlerFunc, middleware []router.MiddlewareFunc) {
	full := r.prefix + path
	segments := split(full)
	base := append([]router.MiddlewareFunc{}, r.middleware...)

	r.table.mu.Lock()
	defer r.table.mu.Unlock()

	r.table.routes = append(r.table.routes, route{
		method:   method,
		segments: segments,
		handler:  router.Chain(handler, base, middleware),
	})

	if _, ok := r.table.options[full]; ok {
		return
	}
	r.table.options[full] = struct{}{}
	r.table.routes = append(r.table.routes, route{
		method:   http.MethodOptions,
		segments: segments,
		handler:  router.Chain(router.Preflight, base),
	})
}

func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// match compares route segments with request segments, binding ":name" parameters.
func match(segments, path []string) (map[string]string, bool) {
	if len(segments) != len(path) {
		return nil, false
	}
	var params map[string]string
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			if path[i] == "" {
				return nil, false
			}
			if params == nil {
				params = make(map[string]string)
			}
			params[segment[1:]] = path[i]
			continue
		}
		if segment != path[i] {
			return nil, false
		}
	}
	return params, true
}
