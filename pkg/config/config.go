package config

import (
	"net/url"
	"strings"
	"time"
)

// Database type constants
const (
	// DatabaseTypeMongoDB stores listings and users in MongoDB
	DatabaseTypeMongoDB = "mongodb"
	// DatabaseTypeMemory keeps everything in process memory
	DatabaseTypeMemory = "memory"
)

// Sequence backend constants
const (
	SequenceBackendMongoDB = "mongodb"
	SequenceBackendRedis   = "redis"
	SequenceBackendMemory  = "memory"
)

// DefaultCategories is the fixed category vocabulary offered to clients.
var DefaultCategories = []string{
	"Seafood", "Beef", "Miscellaneous", "Lamb", "Chicken", "Vegetarian", "Pork",
	"Pasta", "Dessert", "Starter", "Breakfast", "Side", "Vegan", "Goat",
}

// Config is the root configuration of the marketplace service.
// It is loaded once at startup and treated as read-only afterwards.
type Config struct {
	RouterType    string `mapstructure:"router_type"`
	Service       ServiceConfig
	HTTP          HTTPConfig
	Management    ManagementConfig
	CORS          CORSConfig
	Database      DatabaseConfig
	Cache         CacheConfig
	Listings      ListingsConfig
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
	Observability ObservabilityConfig
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ManagementConfig configures the management server
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CORSConfig configures CORS for browser clients.
type CORSConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	AllowOrigins     []string      `mapstructure:"allow_origins"`
	AllowMethods     []string      `mapstructure:"allow_methods"`
	AllowHeaders     []string      `mapstructure:"allow_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

// DatabaseConfig configures the document store
type DatabaseConfig struct {
	Type             string        `mapstructure:"type"` // mongodb, memory
	URL              string        `mapstructure:"url"`
	DatabaseName     string        `mapstructure:"database_name"`
	Parameters       string        `mapstructure:"parameters"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// MongoURI assembles the connection string from url, database name and
// connection parameters. A database name already present in url is kept.
func (d DatabaseConfig) MongoURI() string {
	base := strings.TrimRight(strings.TrimSpace(d.URL), "/")
	if base == "" {
		return ""
	}

	if name := strings.TrimSpace(d.DatabaseName); name != "" && !hasPath(base) {
		base += "/" + name
	}

	params := strings.TrimLeft(strings.TrimSpace(d.Parameters), "?")
	if params == "" {
		return base
	}
	if strings.Contains(base, "?") {
		return base + "&" + params
	}
	if !hasPath(base) {
		base += "/"
	}
	return base + "?" + params
}

func hasPath(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return strings.Trim(parsed.Path, "/") != ""
}

// CacheConfig configures the Redis connection used for sequence allocation and owner lookups
type CacheConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	URL              string        `mapstructure:"url"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	TTL              time.Duration `mapstructure:"ttl"`
}

// ListingsConfig configures catalog behavior.
type ListingsConfig struct {
	PageSize int `mapstructure:"page_size"`
	// MatchAllSentinel switches category filtering from any-of to all-of when present in the request.
	MatchAllSentinel string   `mapstructure:"match_all_sentinel"`
	Categories       []string `mapstructure:"categories"`
	SequenceBackend  string   `mapstructure:"sequence_backend"` // mongodb, redis, memory
}

// Rate limit backend constants
const (
	RateLimitBackendLocal = "local"
	RateLimitBackendRedis = "redis"
)

// RateLimitConfig configures the limiter applied to write routes.
type RateLimitConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	Backend           string `mapstructure:"backend"` // local, redis
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	Burst             int    `mapstructure:"burst"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string  `mapstructure:"log_level"`
	LogFormat         string  `mapstructure:"log_format"` // json, text
	ServiceName       string  `mapstructure:"service_name"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled"`
	TracingSampleRate float64 `mapstructure:"tracing_sample_rate"`
	TracingEndpoint   string  `mapstructure:"tracing_endpoint"`
}

// DefaultConfig returns the configuration used when nothing else is provided.
func DefaultConfig() *Config {
	return &Config{
		RouterType: "gin",
		Service: ServiceConfig{
			Name:        "marketplace",
			Environment: "production",
		},
		HTTP: HTTPConfig{
			Port:            3000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		CORS: CORSConfig{
			Enabled:      true,
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
			MaxAge:       12 * time.Hour,
		},
		Database: DatabaseConfig{
			Type:             DatabaseTypeMongoDB,
			URL:              "mongodb://localhost:27017",
			DatabaseName:     "marketplace",
			ConnectTimeout:   10 * time.Second,
			OperationTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:          false,
			URL:              "redis://localhost:6379/0",
			MaxConns:         10,
			OperationTimeout: 2 * time.Second,
			TTL:              5 * time.Minute,
		},
		Listings: ListingsConfig{
			PageSize:         10,
			MatchAllSentinel: "Gluten free",
			Categories:       append([]string(nil), DefaultCategories...),
			SequenceBackend:  SequenceBackendMongoDB,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Backend:           RateLimitBackendLocal,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			ServiceName:       "marketplace",
			TracingEnabled:    false,
			TracingSampleRate: 0.1,
			TracingEndpoint:   "localhost:4317",
		},
	}
}
