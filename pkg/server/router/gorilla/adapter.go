// Package gorilla implements router.Router on gorilla/mux.
package gorilla

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"

	"github.com/mealboard/marketplace/pkg/server/router"
)

// Router implements router.Router using gorilla/mux.
type Router struct {
	mux        *mux.Router
	middleware []router.MiddlewareFunc
	prefix     string
	options    *optionSet
}

type optionSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewRouter creates a new gorilla/mux router.
func NewRouter() *Router {
	return &Router{
		mux:     mux.NewRouter(),
		options: &optionSet{paths: make(map[string]struct{})},
	}
}

func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodGet, path, handler, middleware)
}

func (r *Router) POST(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPost, path, handler, middleware)
}

func (r *Router) PUT(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPut, path, handler, middleware)
}

func (r *Router) DELETE(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodDelete, path, handler, middleware)
}

func (r *Router) PATCH(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.handle(http.MethodPatch, path, handler, middleware)
}

// Group creates a route group with common prefix and middleware.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &Router{
		mux:        r.mux.PathPrefix(prefix).Subrouter(),
		middleware: append(append([]router.MiddlewareFunc{}, r.middleware...), middleware...),
		prefix:     r.prefix + prefix,
		options:    r.options,
	}
}

// Use applies middleware to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) handle(method, path string, h router.HandlerFunc, middleware []router.MiddlewareFunc) {
	base := append([]router.MiddlewareFunc{}, r.middleware...)
	muxPath := toMuxPath(path)

	r.mux.Handle(muxPath, serve(router.Chain(h, base, middleware))).Methods(method)

	r.options.mu.Lock()
	defer r.options.mu.Unlock()
	key := r.prefix + muxPath
	if _, ok := r.options.paths[key]; ok {
		return
	}
	r.options.paths[key] = struct{}{}
	r.mux.Handle(muxPath, serve(router.Chain(router.Preflight, base))).Methods(http.MethodOptions)
}

func serve(handler router.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		router.Execute(handler, router.NewContext(w, req, func(name string) string { return vars[name] }))
	})
}

// toMuxPath rewrites ":name" segments into gorilla's "{name}" form.
func toMuxPath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			parts[i] = "{" + p[1:] + "}"
		}
	}
	return strings.Join(parts, "/")
}
