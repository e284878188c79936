// Package cors answers browser preflights and sets CORS headers for the public API.
package cors

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mealboard/marketplace/pkg/config"
	"github.com/mealboard/marketplace/pkg/server/router"
)

// Config configures CORS middleware behavior. An origin of "*" allows any origin.
type Config struct {
	Enabled          bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// FromConfig maps the service configuration section.
func FromConfig(cfg config.CORSConfig) Config {
	return Config{
		Enabled:          cfg.Enabled,
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}

// Middleware returns a router middleware implementing CORS.
func Middleware(cfg Config) router.MiddlewareFunc {
	methods := strings.ToUpper(strings.Join(cfg.AllowMethods, ", "))
	if methods == "" {
		methods = "GET, POST, PUT, DELETE, OPTIONS"
	}
	headers := strings.Join(cfg.AllowHeaders, ", ")
	allowAll := false
	for _, origin := range cfg.AllowOrigins {
		if strings.TrimSpace(origin) == "*" {
			allowAll = true
		}
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			if !cfg.Enabled {
				return next(c)
			}

			req := c.Request()
			origin := req.Header.Get("Origin")
			if origin == "" {
				return next(c)
			}

			preflight := req.Method == http.MethodOptions && req.Header.Get("Access-Control-Request-Method") != ""
			if !allowAll && !allowed(cfg.AllowOrigins, origin) {
				if preflight {
					c.Response().WriteHeader(http.StatusForbidden)
					return nil
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Add("Vary", "Origin")
			switch {
			case cfg.AllowCredentials:
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
			case allowAll:
				h.Set("Access-Control-Allow-Origin", "*")
			default:
				h.Set("Access-Control-Allow-Origin", origin)
			}

			if !preflight {
				return next(c)
			}

			h.Set("Access-Control-Allow-Methods", methods)
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			} else if requested := req.Header.Get("Access-Control-Request-Headers"); requested != "" {
				h.Set("Access-Control-Allow-Headers", requested)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(int(cfg.MaxAge/time.Second)))
			}
			c.Response().WriteHeader(http.StatusNoContent)
			return nil
		}
	}
}

func allowed(origins []string, origin string) bool {
	for _, candidate := range origins {
		if strings.EqualFold(strings.TrimSpace(candidate), origin) {
			return true
		}
	}
	return false
}
