package logging

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mealboard/marketplace/pkg/middleware/requestid"
	"github.com/mealboard/marketplace/pkg/middleware/testutil"
	"github.com/mealboard/marketplace/pkg/server/router"
	"github.com/mealboard/marketplace/pkg/server/router/nethttp"
)

func newRouter(log *testutil.MockLogger) router.Router {
	r := nethttp.NewRouter()
	r.Use(requestid.RequestID(), Logging(log, DefaultConfig()))
	r.GET("/products", func(c router.Context) error { return c.JSON(http.StatusOK, map[string]int{"totalProducts": 0}) })
	r.GET("/product/:productId", func(c router.Context) error { return c.String(http.StatusNotFound, "missing") })
	r.GET("/broken", func(c router.Context) error { return errors.New("store down") })
	r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "ok") })
	return r
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantMsg    string
		wantLevel  string
		wantStatus int
	}{
		{"success", "/products?page=2&categories=Beef", "request completed", "info", 200},
		{"client error", "/product/abc", "request completed", "info", 404},
		{"handler error", "/broken", "request failed", "error", 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := testutil.NewMockLogger()
			r := newRouter(log)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.RemoteAddr = "203.0.113.7:5123"
			req.Header.Set(requestid.RequestIDHeader, "req-log")
			r.ServeHTTP(httptest.NewRecorder(), req)

			entry, ok := log.Find(tt.wantMsg)
			if !ok {
				t.Fatalf("no %q entry in %v", tt.wantMsg, log.Entries())
			}
			if entry.Level != tt.wantLevel {
				t.Errorf("level = %s, want %s", entry.Level, tt.wantLevel)
			}
			if entry.Fields[FieldStatus] != tt.wantStatus {
				t.Errorf("status = %v, want %d", entry.Fields[FieldStatus], tt.wantStatus)
			}
			if entry.Fields[FieldRequestID] != "req-log" {
				t.Errorf("request_id = %v", entry.Fields[FieldRequestID])
			}
			if entry.Fields[FieldRemoteAddr] != "203.0.113.7" {
				t.Errorf("remote_addr = %v", entry.Fields[FieldRemoteAddr])
			}
		})
	}
}

func TestLogging_QueryAndExclusions(t *testing.T) {
	log := testutil.NewMockLogger()
	r := newRouter(log)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(log.Entries()) != 0 {
		t.Fatalf("health probe was logged: %v", log.Entries())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products?sort=asc", nil))
	entry, ok := log.Find("request completed")
	if !ok {
		t.Fatal("request not logged")
	}
	if entry.Fields[FieldQuery] != "sort=asc" {
		t.Errorf("query = %v, want sort=asc", entry.Fields[FieldQuery])
	}
}
