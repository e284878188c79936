package server

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mealboard/marketplace/pkg/observability/logger"
	"github.com/mealboard/marketplace/pkg/server/router"
	"github.com/mealboard/marketplace/pkg/server/router/nethttp"
)

// waitForAddr polls until s has bound its port.
func waitForAddr(t *testing.T, s *Server) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != "" {
			return addr
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not bind a port")
	return ""
}

func localURL(addr, path string) string {
	_, port, _ := net.SplitHostPort(addr)
	return "http://127.0.0.1:" + port + path
}

func TestServerStartAndShutdown(t *testing.T) {
	r := nethttp.NewRouter()
	r.GET("/ping", func(c router.Context) error {
		return c.String(http.StatusOK, "pong")
	})
	srv := NewServer("test", Config{Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second}, r, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()

	addr := waitForAddr(t, srv)
	for i := 0; i < 5; i++ {
		resp, err := http.Get(localURL(addr, "/ping"))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("request %d: status %d", i, resp.StatusCode)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned %v after cancellation", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown timed out")
	}
}

func TestServerShutdownWaitsForInFlightRequests(t *testing.T) {
	started := make(chan struct{})
	r := nethttp.NewRouter()
	r.GET("/slow", func(c router.Context) error {
		close(started)
		time.Sleep(200 * time.Millisecond)
		return c.String(http.StatusOK, "done")
	})
	srv := NewServer("test", Config{ShutdownTimeout: 2 * time.Second}, r, logger.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(ctx) }()
	addr := waitForAddr(t, srv)

	respCh := make(chan int, 1)
	go func() {
		resp, err := http.Get(localURL(addr, "/slow"))
		if err != nil {
			respCh <- 0
			return
		}
		resp.Body.Close()
		respCh <- resp.StatusCode
	}()

	<-started
	cancel()
	if code := <-respCh; code != http.StatusOK {
		t.Fatalf("in-flight request status = %d", code)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("Start() = %v", err)
	}
}

func TestServerStartError(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	port := busy.Addr().(*net.TCPAddr).Port

	srv := NewServer("test", Config{Port: port}, nethttp.NewRouter(), logger.NewNopLogger())
	err = srv.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "test server failed to start") {
		t.Fatalf("expected bind error, got %v", err)
	}
}

func TestServerShutdownBeforeStart(t *testing.T) {
	srv := NewServer("test", Config{}, nethttp.NewRouter(), logger.NewNopLogger())
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if srv.Addr() != "" {
		t.Fatalf("Addr() = %q before start", srv.Addr())
	}
}
