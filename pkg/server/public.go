package server

import (
	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/middleware/cors"
	"github.com/mealboard/marketplace/pkg/middleware/logging"
	"github.com/mealboard/marketplace/pkg/middleware/metrics"
	"github.com/mealboard/marketplace/pkg/middleware/recovery"
	"github.com/mealboard/marketplace/pkg/middleware/requestid"
	"github.com/mealboard/marketplace/pkg/middleware/tracing"
	"github.com/mealboard/marketplace/pkg/observability/logger"
	obsmetrics "github.com/mealboard/marketplace/pkg/observability/metrics"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// PublicAPIServer serves the marketplace API.
type PublicAPIServer struct {
	*Server
}

// NewPublicAPIServer applies the public middleware stack to r:
//  1. request ID
//  2. access logging
//  3. panic recovery
//  4. CORS
//  5. Prometheus metrics (when httpMetrics is not nil)
//  6. tracing (when enabled in cfg.Observability)
//
// Routes must be registered on r after this call.
func NewPublicAPIServer(cfg *config.Config, r router.Router, log logger.Logger, httpMetrics *obsmetrics.HTTPMetrics) *PublicAPIServer {
	stack := []router.MiddlewareFunc{
		requestid.RequestID(),
		logging.Logging(log, logging.DefaultConfig()),
		recovery.Recovery(log),
		cors.Middleware(cors.FromConfig(cfg.CORS)),
	}
	if httpMetrics != nil {
		stack = append(stack, metrics.Metrics(httpMetrics))
	}
	if cfg.Observability.TracingEnabled {
		stack = append(stack, tracing.Tracing(tracing.Config{TracerName: cfg.Service.Name}))
	}
	r.Use(stack...)

	return &PublicAPIServer{
		Server: NewServer("public", Config{
			Port:            cfg.HTTP.Port,
			ReadTimeout:     cfg.HTTP.ReadTimeout,
			WriteTimeout:    cfg.HTTP.WriteTimeout,
			IdleTimeout:     cfg.HTTP.IdleTimeout,
			ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
		}, r, log),
	}
}
