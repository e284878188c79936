package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
	flags      *pflag.FlagSet
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "APP")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// WithFlags binds command-line flags registered by RegisterFlags.
// Flags that were explicitly set take precedence over env and file values.
func (l *ViperLoader) WithFlags(flags *pflag.FlagSet) *ViperLoader {
	l.flags = flags
	return l
}

// flagBindings maps CLI flag names to config keys.
var flagBindings = map[string]string{
	"http-port":    "http.port",
	"router-type":  "router_type",
	"log-level":    "observability.log_level",
	"database-url": "database.url",
}

// RegisterFlags adds the overridable config flags to flags.
func RegisterFlags(flags *pflag.FlagSet) {
	flags.Int("http-port", 0, "public API port")
	flags.String("router-type", "", "HTTP router: gin, nethttp or gorilla")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("database-url", "", "MongoDB connection URL")
}

// Load loads configuration with precedence: flags > ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	v := viper.New()

	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	v.SetEnvPrefix(l.envPrefix)
	l.bindEnvVars(v)

	if err := l.bindFlags(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (l *ViperLoader) bindFlags(v *viper.Viper) error {
	if l.flags == nil {
		return nil
	}
	for name, key := range flagBindings {
		flag := l.flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}
	return nil
}

// bindEnvVars explicitly binds environment variables for nested structs
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	v.BindEnv("router_type", l.prefixedEnv("ROUTER_TYPE"))
	v.BindEnv("service.name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("service.environment", l.prefixedEnv("SERVICE_ENVIRONMENT"), l.prefixedEnv("ENVIRONMENT"))

	// HTTP
	v.BindEnv("http.port", l.prefixedEnv("HTTP_PORT"), "PORT")
	v.BindEnv("http.read_timeout", l.prefixedEnv("HTTP_READ_TIMEOUT"))
	v.BindEnv("http.write_timeout", l.prefixedEnv("HTTP_WRITE_TIMEOUT"))
	v.BindEnv("http.idle_timeout", l.prefixedEnv("HTTP_IDLE_TIMEOUT"))
	v.BindEnv("http.shutdown_timeout", l.prefixedEnv("HTTP_SHUTDOWN_TIMEOUT"))

	// Management
	v.BindEnv("management.enabled", l.prefixedEnv("MGMT_ENABLED"))
	v.BindEnv("management.port", l.prefixedEnv("MGMT_PORT"))
	v.BindEnv("management.read_timeout", l.prefixedEnv("MGMT_READ_TIMEOUT"))
	v.BindEnv("management.write_timeout", l.prefixedEnv("MGMT_WRITE_TIMEOUT"))

	// CORS
	v.BindEnv("cors.enabled", l.prefixedEnv("CORS_ENABLED"))
	v.BindEnv("cors.allow_origins", l.prefixedEnv("CORS_ALLOW_ORIGINS"))
	v.BindEnv("cors.allow_methods", l.prefixedEnv("CORS_ALLOW_METHODS"))
	v.BindEnv("cors.allow_headers", l.prefixedEnv("CORS_ALLOW_HEADERS"))
	v.BindEnv("cors.allow_credentials", l.prefixedEnv("CORS_ALLOW_CREDENTIALS"))
	v.BindEnv("cors.max_age", l.prefixedEnv("CORS_MAX_AGE"))

	// Database
	v.BindEnv("database.type", l.prefixedEnv("DB_TYPE"))
	v.BindEnv("database.url", l.prefixedEnv("DB_URL"), "DB_URL")
	v.BindEnv("database.database_name", l.prefixedEnv("DB_DATABASE_NAME"), "DB_NAME")
	v.BindEnv("database.parameters", l.prefixedEnv("DB_PARAMETERS"), "DB_PARAMETERS")
	v.BindEnv("database.connect_timeout", l.prefixedEnv("DB_CONNECT_TIMEOUT"))
	v.BindEnv("database.operation_timeout", l.prefixedEnv("DB_OPERATION_TIMEOUT"))

	// Cache
	v.BindEnv("cache.enabled", l.prefixedEnv("CACHE_ENABLED"))
	v.BindEnv("cache.url", l.prefixedEnv("CACHE_URL"))
	v.BindEnv("cache.max_conns", l.prefixedEnv("CACHE_MAX_CONNS"))
	v.BindEnv("cache.operation_timeout", l.prefixedEnv("CACHE_OPERATION_TIMEOUT"))
	v.BindEnv("cache.ttl", l.prefixedEnv("CACHE_TTL"))

	// Listings
	v.BindEnv("listings.page_size", l.prefixedEnv("LISTINGS_PAGE_SIZE"))
	v.BindEnv("listings.match_all_sentinel", l.prefixedEnv("LISTINGS_MATCH_ALL_SENTINEL"))
	v.BindEnv("listings.categories", l.prefixedEnv("LISTINGS_CATEGORIES"))
	v.BindEnv("listings.sequence_backend", l.prefixedEnv("LISTINGS_SEQUENCE_BACKEND"))

	// Rate limit
	v.BindEnv("rate_limit.enabled", l.prefixedEnv("RATE_LIMIT_ENABLED"))
	v.BindEnv("rate_limit.backend", l.prefixedEnv("RATE_LIMIT_BACKEND"))
	v.BindEnv("rate_limit.requests_per_second", l.prefixedEnv("RATE_LIMIT_REQUESTS_PER_SECOND"))
	v.BindEnv("rate_limit.burst", l.prefixedEnv("RATE_LIMIT_BURST"))

	// Observability
	v.BindEnv("observability.log_level", l.prefixedEnv("LOG_LEVEL"))
	v.BindEnv("observability.log_format", l.prefixedEnv("LOG_FORMAT"))
	v.BindEnv("observability.service_name", l.prefixedEnv("SERVICE_NAME"))
	v.BindEnv("observability.tracing_enabled", l.prefixedEnv("TRACING_ENABLED"))
	v.BindEnv("observability.tracing_sample_rate", l.prefixedEnv("TRACING_SAMPLE_RATE"))
	v.BindEnv("observability.tracing_endpoint", l.prefixedEnv("TRACING_ENDPOINT"))
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = "APP"
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("router_type", cfg.RouterType)
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.shutdown_timeout", cfg.HTTP.ShutdownTimeout)

	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)
	v.SetDefault("management.read_timeout", cfg.Management.ReadTimeout)
	v.SetDefault("management.write_timeout", cfg.Management.WriteTimeout)

	v.SetDefault("cors.enabled", cfg.CORS.Enabled)
	v.SetDefault("cors.allow_origins", cfg.CORS.AllowOrigins)
	v.SetDefault("cors.allow_methods", cfg.CORS.AllowMethods)
	v.SetDefault("cors.allow_headers", cfg.CORS.AllowHeaders)
	v.SetDefault("cors.allow_credentials", cfg.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", cfg.CORS.MaxAge)

	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.database_name", cfg.Database.DatabaseName)
	v.SetDefault("database.parameters", cfg.Database.Parameters)
	v.SetDefault("database.connect_timeout", cfg.Database.ConnectTimeout)
	v.SetDefault("database.operation_timeout", cfg.Database.OperationTimeout)

	v.SetDefault("cache.enabled", cfg.Cache.Enabled)
	v.SetDefault("cache.url", cfg.Cache.URL)
	v.SetDefault("cache.max_conns", cfg.Cache.MaxConns)
	v.SetDefault("cache.operation_timeout", cfg.Cache.OperationTimeout)
	v.SetDefault("cache.ttl", cfg.Cache.TTL)

	v.SetDefault("listings.page_size", cfg.Listings.PageSize)
	v.SetDefault("listings.match_all_sentinel", cfg.Listings.MatchAllSentinel)
	v.SetDefault("listings.categories", cfg.Listings.Categories)
	v.SetDefault("listings.sequence_backend", cfg.Listings.SequenceBackend)

	v.SetDefault("rate_limit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("rate_limit.backend", cfg.RateLimit.Backend)
	v.SetDefault("rate_limit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.service_name", cfg.Observability.ServiceName)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
}

// Validate validates the configuration and returns every problem found
func (l *ViperLoader) Validate(cfg *Config) error {
	var errs []error

	cfg.CORS.AllowOrigins = normalizeStringSlice(cfg.CORS.AllowOrigins)
	cfg.Listings.Categories = normalizeStringSlice(splitSingle(cfg.Listings.Categories))

	validRouterTypes := []string{"nethttp", "gin", "gorilla"}
	if !contains(validRouterTypes, strings.ToLower(cfg.RouterType)) {
		errs = append(errs, fmt.Errorf("invalid router_type: %s (must be one of: %v)", cfg.RouterType, validRouterTypes))
	}

	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", cfg.HTTP.Port))
	}
	if cfg.Management.Enabled {
		if cfg.Management.Port < 1 || cfg.Management.Port > 65535 {
			errs = append(errs, fmt.Errorf("management.port must be between 1 and 65535, got %d", cfg.Management.Port))
		}
		if cfg.Management.Port == cfg.HTTP.Port {
			errs = append(errs, errors.New("management.port must differ from http.port"))
		}
	}

	validDatabaseTypes := []string{DatabaseTypeMongoDB, DatabaseTypeMemory}
	if !contains(validDatabaseTypes, cfg.Database.Type) {
		errs = append(errs, fmt.Errorf("invalid database.type: %s (must be one of: %v)", cfg.Database.Type, validDatabaseTypes))
	}
	if cfg.Database.Type == DatabaseTypeMongoDB && strings.TrimSpace(cfg.Database.URL) == "" {
		errs = append(errs, errors.New("database.url is required when database.type is mongodb"))
	}

	if cfg.Cache.Enabled && strings.TrimSpace(cfg.Cache.URL) == "" {
		errs = append(errs, errors.New("cache.url is required when cache is enabled"))
	}

	if cfg.Listings.PageSize <= 0 {
		errs = append(errs, errors.New("listings.page_size must be greater than 0"))
	}
	if len(cfg.Listings.Categories) == 0 {
		errs = append(errs, errors.New("listings.categories must contain at least one category"))
	}
	validSequenceBackends := []string{SequenceBackendMongoDB, SequenceBackendRedis, SequenceBackendMemory}
	if !contains(validSequenceBackends, cfg.Listings.SequenceBackend) {
		errs = append(errs, fmt.Errorf("invalid listings.sequence_backend: %s (must be one of: %v)", cfg.Listings.SequenceBackend, validSequenceBackends))
	}
	if cfg.Listings.SequenceBackend == SequenceBackendRedis && !cfg.Cache.Enabled {
		errs = append(errs, errors.New("listings.sequence_backend redis requires cache.enabled"))
	}
	if cfg.Listings.SequenceBackend == SequenceBackendMongoDB && cfg.Database.Type != DatabaseTypeMongoDB {
		errs = append(errs, errors.New("listings.sequence_backend mongodb requires database.type mongodb"))
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, errors.New("rate_limit.requests_per_second must be greater than 0 when rate limiting is enabled"))
		}
		if cfg.RateLimit.Burst <= 0 {
			errs = append(errs, errors.New("rate_limit.burst must be greater than 0 when rate limiting is enabled"))
		}
		validBackends := []string{RateLimitBackendLocal, RateLimitBackendRedis}
		if !contains(validBackends, cfg.RateLimit.Backend) {
			errs = append(errs, fmt.Errorf("invalid rate_limit.backend: %s (must be one of: %v)", cfg.RateLimit.Backend, validBackends))
		}
		if cfg.RateLimit.Backend == RateLimitBackendRedis && !cfg.Cache.Enabled {
			errs = append(errs, errors.New("rate_limit.backend redis requires cache.enabled"))
		}
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, strings.ToLower(cfg.Observability.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_level: %s (must be one of: %v)", cfg.Observability.LogLevel, validLogLevels))
	}
	validLogFormats := []string{"json", "text"}
	if !contains(validLogFormats, strings.ToLower(cfg.Observability.LogFormat)) {
		errs = append(errs, fmt.Errorf("invalid observability.log_format: %s (must be one of: %v)", cfg.Observability.LogFormat, validLogFormats))
	}
	if cfg.Observability.TracingSampleRate < 0 || cfg.Observability.TracingSampleRate > 1 {
		errs = append(errs, fmt.Errorf("observability.tracing_sample_rate must be between 0 and 1, got %v", cfg.Observability.TracingSampleRate))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// normalizeStringSlice removes empty strings and trims whitespace
func normalizeStringSlice(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// splitSingle expands a single comma-separated entry, which is how list
// values arrive from environment variables.
func splitSingle(values []string) []string {
	if len(values) == 1 && strings.Contains(values[0], ",") {
		return strings.Split(values[0], ",")
	}
	return values
}
