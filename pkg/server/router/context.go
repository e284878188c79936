package router

import "net/http"

// ParamFunc resolves a path parameter for the current request.
type ParamFunc func(name string) string

// NewContext builds a Context over a plain http request. Adapters without a
// native context type use it and supply their own parameter lookup.
func NewContext(w http.ResponseWriter, r *http.Request, params ParamFunc) Context {
	if params == nil {
		params = func(string) string { return "" }
	}
	return &httpContext{
		request:  r,
		response: NewResponseWriter(w),
		params:   params,
	}
}

type httpContext struct {
	request  *http.Request
	response ResponseWriter
	params   ParamFunc
	values   Values
}

func (c *httpContext) Request() *http.Request       { return c.request }
func (c *httpContext) SetRequest(r *http.Request)   { c.request = r }
func (c *httpContext) Response() ResponseWriter     { return c.response }
func (c *httpContext) SetResponse(w ResponseWriter) { c.response = w }
func (c *httpContext) Param(name string) string     { return c.params(name) }

func (c *httpContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *httpContext) Bind(v interface{}) error {
	return DecodeJSON(c.request, v)
}

func (c *httpContext) JSON(code int, v interface{}) error {
	return WriteJSON(c.response, code, v)
}

func (c *httpContext) String(code int, s string) error {
	return WriteString(c.response, code, s)
}

func (c *httpContext) Get(key string) interface{}        { return c.values.Get(key) }
func (c *httpContext) Set(key string, value interface{}) { c.values.Set(key, value) }
