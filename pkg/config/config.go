// Package config holds the daemon's configuration: REST server
// transport settings, search engine defaults, auth, and rate limiting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all daemon configuration.
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds REST server configuration.
type ServerConfig struct {
	Host            string        // Server host (default: "0.0.0.0")
	Port            int           // Server port (default: 8980)
	MaxConnections  int           // Max concurrent connections (loaded and validated; the REST server does not apply it)
	RequestTimeout  time.Duration // Request timeout
	ShutdownTimeout time.Duration // Graceful shutdown timeout
	EnableTLS       bool          // Enable TLS
	CertFile        string        // TLS certificate file
	KeyFile         string        // TLS key file
}

// EngineConfig holds search engine defaults read from the environment.
// The daemon logs them at startup; engine.Run does not read them, and a
// run takes its settings from its own request.
type EngineConfig struct {
	DefaultAtol                    float64 // Default distance tolerance for shell clustering
	DefaultRtol                    float64 // Default relative distance tolerance
	DefaultMaxOutputConfigurations int     // Default K-best cache size
	DefaultThreads                 int     // Default worker count per rank (0 = GOMAXPROCS)
}

// AuthConfig holds JWT authentication configuration for the REST API.
type AuthConfig struct {
	Enabled  bool          // Require a valid bearer token
	Secret   string        // HMAC signing secret
	TokenTTL time.Duration // Issued-token lifetime
}

// RateLimitConfig holds per-client request rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool    // Enable rate limiting
	RequestsPerSecond float64 // Sustained request rate per client
	Burst             int     // Burst allowance
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8980,
			MaxConnections:  1000,
			RequestTimeout:  5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			EnableTLS:       false,
		},
		Engine: EngineConfig{
			DefaultAtol:                    1e-3,
			DefaultRtol:                    1e-5,
			DefaultMaxOutputConfigurations: 10,
			DefaultThreads:                 0,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// LoadFromEnv loads configuration from environment variables, starting
// from Default and overriding whatever is set.
func LoadFromEnv() *Config {
	cfg := Default()

	// Server configuration
	if host := os.Getenv("SQS_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SQS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if maxConn := os.Getenv("SQS_MAX_CONNECTIONS"); maxConn != "" {
		if mc, err := strconv.Atoi(maxConn); err == nil {
			cfg.Server.MaxConnections = mc
		}
	}
	if timeout := os.Getenv("SQS_REQUEST_TIMEOUT"); timeout != "" {
		if t, err := time.ParseDuration(timeout); err == nil {
			cfg.Server.RequestTimeout = t
		}
	}
	if enableTLS := os.Getenv("SQS_ENABLE_TLS"); enableTLS == "true" {
		cfg.Server.EnableTLS = true
		cfg.Server.CertFile = os.Getenv("SQS_TLS_CERT")
		cfg.Server.KeyFile = os.Getenv("SQS_TLS_KEY")
	}

	// Engine defaults
	if atol := os.Getenv("SQS_DEFAULT_ATOL"); atol != "" {
		if v, err := strconv.ParseFloat(atol, 64); err == nil {
			cfg.Engine.DefaultAtol = v
		}
	}
	if rtol := os.Getenv("SQS_DEFAULT_RTOL"); rtol != "" {
		if v, err := strconv.ParseFloat(rtol, 64); err == nil {
			cfg.Engine.DefaultRtol = v
		}
	}
	if maxOut := os.Getenv("SQS_DEFAULT_MAX_OUTPUT_CONFIGURATIONS"); maxOut != "" {
		if v, err := strconv.Atoi(maxOut); err == nil {
			cfg.Engine.DefaultMaxOutputConfigurations = v
		}
	}
	// NUM_THREADS follows the job-scheduler convention of naming the
	// per-rank thread count independently of any service-specific
	// prefix, so a run launched under a cluster scheduler inherits it
	// without needing an SQS-specific variable.
	if threads := os.Getenv("NUM_THREADS"); threads != "" {
		if v, err := strconv.Atoi(threads); err == nil {
			cfg.Engine.DefaultThreads = v
		}
	}

	// Auth configuration
	if authEnabled := os.Getenv("SQS_AUTH_ENABLED"); authEnabled == "true" {
		cfg.Auth.Enabled = true
		cfg.Auth.Secret = os.Getenv("SQS_AUTH_SECRET")
	}
	if ttl := os.Getenv("SQS_AUTH_TOKEN_TTL"); ttl != "" {
		if t, err := time.ParseDuration(ttl); err == nil {
			cfg.Auth.TokenTTL = t
		}
	}

	// Rate limit configuration
	if rlEnabled := os.Getenv("SQS_RATE_LIMIT_ENABLED"); rlEnabled == "false" {
		cfg.RateLimit.Enabled = false
	}
	if rps := os.Getenv("SQS_RATE_LIMIT_RPS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimit.RequestsPerSecond = v
		}
	}
	if burst := os.Getenv("SQS_RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimit.Burst = v
		}
	}

	return cfg
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.MaxConnections < 1 {
		return fmt.Errorf("invalid max connections: %d (must be > 0)", c.Server.MaxConnections)
	}
	if c.Server.EnableTLS {
		if c.Server.CertFile == "" || c.Server.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
	}

	// Engine validation
	if c.Engine.DefaultAtol < 0 {
		return fmt.Errorf("invalid default atol: %v (must be >= 0)", c.Engine.DefaultAtol)
	}
	if c.Engine.DefaultRtol < 0 {
		return fmt.Errorf("invalid default rtol: %v (must be >= 0)", c.Engine.DefaultRtol)
	}
	if c.Engine.DefaultMaxOutputConfigurations < 1 {
		return fmt.Errorf("invalid default max output configurations: %d (must be > 0)", c.Engine.DefaultMaxOutputConfigurations)
	}
	if c.Engine.DefaultThreads < 0 {
		return fmt.Errorf("invalid default threads: %d (must be >= 0)", c.Engine.DefaultThreads)
	}

	// Auth validation
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return fmt.Errorf("auth enabled but no signing secret configured")
	}

	// Rate limit validation
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("invalid rate limit: %v requests/sec (must be > 0)", c.RateLimit.RequestsPerSecond)
	}

	return nil
}

// Address returns the server address (host:port).
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
