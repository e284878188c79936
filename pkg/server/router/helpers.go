package router

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
)

// ErrEmptyBody is returned by Bind when the request has no body.
var ErrEmptyBody = errors.New("request body is empty")

// Chain wraps h with middleware so that middleware[0] runs first.
func Chain(h HandlerFunc, middleware ...[]MiddlewareFunc) HandlerFunc {
	handler := h
	for g := len(middleware) - 1; g >= 0; g-- {
		group := middleware[g]
		for i := len(group) - 1; i >= 0; i-- {
			handler = group[i](handler)
		}
	}
	return handler
}

// Preflight answers OPTIONS requests that middleware (CORS) did not already answer.
func Preflight(c Context) error {
	if !c.Response().Written() {
		c.Response().WriteHeader(http.StatusNoContent)
	}
	return nil
}

// Execute runs handler and writes a bare 500 when it fails without responding.
func Execute(handler HandlerFunc, c Context) {
	if err := handler(c); err != nil && !c.Response().Written() {
		http.Error(c.Response(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// DecodeJSON decodes a JSON request body into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer r.Body.Close()

	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("unsupported content type: %s", contentType)
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyBody
		}
		return err
	}
	return nil
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// WriteString writes s as text/plain with the given status.
func WriteString(w http.ResponseWriter, code int, s string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, err := io.WriteString(w, s)
	return err
}

// NewResponseWriter wraps w with status tracking.
func NewResponseWriter(w http.ResponseWriter) ResponseWriter {
	return &statusWriter{ResponseWriter: w}
}

type statusWriter struct {
	http.ResponseWriter
	mu      sync.RWMutex
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.Written() {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Status() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Written() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.written
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// Values is a concurrency-safe request-scoped key/value store for adapters
// whose native context has none.
type Values struct {
	mu    sync.RWMutex
	items map[string]interface{}
}

func (v *Values) Get(key string) interface{} {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.items[key]
}

func (v *Values) Set(key string, value interface{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.items == nil {
		v.items = make(map[string]interface{})
	}
	v.items[key] = value
}
