package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	obsmetrics "github.com/mealboard/marketplace/pkg/observability/metrics"
	"github.com/mealboard/marketplace/pkg/server/router"
	"github.com/mealboard/marketplace/pkg/server/router/nethttp"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/products":                                        "/products",
		"/product/65f1c2a9e4b0a1b2c3d4e5f6":                "/product/:id",
		"/products/user/42":                                "/products/user/:id",
		"/user/phone/3f2b8c1e-2d4a-4b6e-9f1a-0c2d3e4f5a6b": "/user/phone/:id",
		"/products/categories":                             "/products/categories",
	}
	for in, want := range tests {
		if got := NormalizePath(in); got != want {
			t.Errorf("NormalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetrics_RecordsRequests(t *testing.T) {
	reg := obsmetrics.NewRegistry()
	r := nethttp.NewRouter()
	r.Use(Metrics(reg.HTTP))
	r.GET("/product/:productId", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/product/65f1c2a9e4b0a1b2c3d4e5f6", nil))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/product/:id",status="200"} 3
`
	if err := testutil.GatherAndCompare(reg.Gatherer(), strings.NewReader(expected), "http_requests_total"); err != nil {
		t.Fatal(err)
	}
}
