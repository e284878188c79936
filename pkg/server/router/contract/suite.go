// Package contract holds the conformance suite every router adapter must pass.
package contract

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mealboard/marketplace/pkg/server/router"
)

// TestRouterContract runs the shared router conformance suite.
func TestRouterContract(t *testing.T, createRouter func() router.Router) {
	t.Helper()

	t.Run("http_methods", func(t *testing.T) {
		r := createRouter()
		ok := func(body string) router.HandlerFunc {
			return func(c router.Context) error { return c.String(http.StatusOK, body) }
		}
		r.GET("/m", ok("GET"))
		r.POST("/m", ok("POST"))
		r.PUT("/m", ok("PUT"))
		r.DELETE("/m", ok("DELETE"))
		r.PATCH("/m", ok("PATCH"))

		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
			res := perform(r, method, "/m", "", "")
			if res.Code != http.StatusOK || res.Body.String() != method {
				t.Fatalf("%s /m = %d %q", method, res.Code, res.Body.String())
			}
		}

		if res := perform(r, http.MethodGet, "/not-registered", "", ""); res.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unregistered route, got %d", res.Code)
		}
	})

	t.Run("path_params", func(t *testing.T) {
		r := createRouter()
		r.GET("/product/:productId", func(c router.Context) error {
			return c.String(http.StatusOK, "get:"+c.Param("productId"))
		})
		r.POST("/product/new", func(c router.Context) error {
			return c.String(http.StatusOK, "new")
		})
		r.GET("/products/user/:userId", func(c router.Context) error {
			return c.String(http.StatusOK, "owner:"+c.Param("userId"))
		})
		r.GET("/user/phone/:userId", func(c router.Context) error {
			return c.String(http.StatusOK, "phone:"+c.Param("userId"))
		})
		r.GET("/user/:userId", func(c router.Context) error {
			return c.String(http.StatusOK, "user:"+c.Param("userId"))
		})

		cases := map[string]string{
			"GET /product/abc":      "get:abc",
			"POST /product/new":     "new",
			"GET /products/user/u1": "owner:u1",
			"GET /user/phone/u2":    "phone:u2",
			"GET /user/u3":          "user:u3",
		}
		for req, want := range cases {
			parts := strings.SplitN(req, " ", 2)
			res := perform(r, parts[0], parts[1], "", "")
			if res.Code != http.StatusOK || res.Body.String() != want {
				t.Errorf("%s = %d %q, want %q", req, res.Code, res.Body.String(), want)
			}
		}
	})

	t.Run("query_and_bind", func(t *testing.T) {
		r := createRouter()
		r.PUT("/items/:id", func(c router.Context) error {
			var body struct {
				Images []string `json:"images"`
			}
			if err := c.Bind(&body); err != nil {
				return c.String(http.StatusBadRequest, err.Error())
			}
			return c.JSON(http.StatusOK, map[string]interface{}{
				"id":     c.Param("id"),
				"title":  c.Query("title"),
				"images": body.Images,
			})
		})

		res := perform(r, http.MethodPut, "/items/7?title=Chili", `{"images":["a.jpg","b.jpg"]}`, "application/json")
		if res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", res.Code, res.Body.String())
		}
		want := `{"id":"7","images":["a.jpg","b.jpg"],"title":"Chili"}`
		if strings.TrimSpace(res.Body.String()) != want {
			t.Fatalf("body = %s, want %s", res.Body.String(), want)
		}
		if ct := res.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Fatalf("content type = %q", ct)
		}

		res = perform(r, http.MethodPut, "/items/7", "", "application/json")
		if res.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for empty body, got %d", res.Code)
		}
	})

	t.Run("middleware_order", func(t *testing.T) {
		r := createRouter()
		var order []string
		trace := func(name string) router.MiddlewareFunc {
			return func(next router.HandlerFunc) router.HandlerFunc {
				return func(c router.Context) error {
					order = append(order, name)
					return next(c)
				}
			}
		}

		r.Use(trace("global"))
		api := r.Group("/api", trace("group"))
		api.GET("/m", func(c router.Context) error {
			order = append(order, "handler")
			return c.String(http.StatusOK, "ok")
		}, trace("route"))

		if res := perform(r, http.MethodGet, "/api/m", "", ""); res.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", res.Code)
		}
		want := "global,group,route,handler"
		if got := strings.Join(order, ","); got != want {
			t.Fatalf("order = %s, want %s", got, want)
		}
	})

	t.Run("context_values", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("owner", "u1")
				return next(c)
			}
		})
		r.GET("/v", func(c router.Context) error {
			return c.String(http.StatusOK, c.Get("owner").(string))
		})
		if res := perform(r, http.MethodGet, "/v", "", ""); res.Body.String() != "u1" {
			t.Fatalf("body = %q, want u1", res.Body.String())
		}
	})

	t.Run("handler_error_without_response", func(t *testing.T) {
		r := createRouter()
		r.GET("/fail", func(c router.Context) error { return http.ErrHandlerTimeout })
		if res := perform(r, http.MethodGet, "/fail", "", ""); res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		r := createRouter()
		r.GET("/cors", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
		r.POST("/cors", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
		if res := perform(r, http.MethodOptions, "/cors", "", ""); res.Code != http.StatusNoContent {
			t.Fatalf("expected 204 for OPTIONS, got %d", res.Code)
		}
	})
}

func perform(r http.Handler, method, path, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	return res
}
