// Package gin implements router.Router on gin-gonic/gin.
package gin

import (
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/mealboard/marketplace/pkg/server/router"
)

// Router implements router.Router using gin-gonic/gin.
type Router struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	middleware []router.MiddlewareFunc
	options    *optionSet
}

type optionSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewRouter creates a new gin router in release mode.
func NewRouter() *Router {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.HandleMethodNotAllowed = true
	return &Router{
		engine:  engine,
		group:   &engine.RouterGroup,
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
		engine:     r.engine,
		group:      r.group.Group(prefix),
		middleware: append(append([]router.MiddlewareFunc{}, r.middleware...), middleware...),
		options:    r.options,
	}
}

// Use applies middleware to routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) handle(method, path string, h router.HandlerFunc, middleware []router.MiddlewareFunc) {
	base := append([]router.MiddlewareFunc{}, r.middleware...)
	r.group.Handle(method, path, serve(router.Chain(h, base, middleware)))

	r.options.mu.Lock()
	defer r.options.mu.Unlock()
	key := r.group.BasePath() + path
	if _, ok := r.options.paths[key]; ok {
		return
	}
	r.options.paths[key] = struct{}{}
	r.group.Handle(http.MethodOptions, path, serve(router.Chain(router.Preflight, base)))
}

func serve(handler router.HandlerFunc) ginpkg.HandlerFunc {
	return func(gc *ginpkg.Context) {
		router.Execute(handler, &context{gc: gc, response: router.NewResponseWriter(gc.Writer)})
	}
}

// context adapts gin.Context to router.Context.
type context struct {
	gc       *ginpkg.Context
	response router.ResponseWriter
}

func (c *context) Request() *http.Request              { return c.gc.Request }
func (c *context) SetRequest(r *http.Request)          { c.gc.Request = r }
func (c *context) Response() router.ResponseWriter     { return c.response }
func (c *context) SetResponse(w router.ResponseWriter) { c.response = w }
func (c *context) Param(name string) string            { return c.gc.Param(name) }
func (c *context) Query(name string) string            { return c.gc.Query(name) }

func (c *context) Bind(v interface{}) error {
	return router.DecodeJSON(c.gc.Request, v)
}

func (c *context) JSON(code int, v interface{}) error {
	return router.WriteJSON(c.response, code, v)
}

func (c *context) String(code int, s string) error {
	return router.WriteString(c.response, code, s)
}

func (c *context) Get(key string) interface{} {
	v, _ := c.gc.Get(key)
	return v
}

func (c *context) Set(key string, value interface{}) {
	c.gc.Set(key, value)
}
