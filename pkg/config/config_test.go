package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8980 {
		t.Errorf("Expected port 8980, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 1000 {
		t.Errorf("Expected max connections 1000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.ShutdownTimeout != 10*time.Second {
		t.Errorf("Expected shutdown timeout 10s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.EnableTLS {
		t.Error("Expected TLS disabled by default")
	}

	if cfg.Engine.DefaultAtol != 1e-3 {
		t.Errorf("Expected default atol 1e-3, got %v", cfg.Engine.DefaultAtol)
	}
	if cfg.Engine.DefaultRtol != 1e-5 {
		t.Errorf("Expected default rtol 1e-5, got %v", cfg.Engine.DefaultRtol)
	}
	if cfg.Engine.DefaultMaxOutputConfigurations != 10 {
		t.Errorf("Expected default max output configurations 10, got %d", cfg.Engine.DefaultMaxOutputConfigurations)
	}
	if cfg.Engine.DefaultThreads != 0 {
		t.Errorf("Expected default threads 0 (GOMAXPROCS), got %d", cfg.Engine.DefaultThreads)
	}

	if cfg.Auth.Enabled {
		t.Error("Expected auth disabled by default")
	}
	if cfg.Auth.TokenTTL != 24*time.Hour {
		t.Errorf("Expected token TTL 24h, got %v", cfg.Auth.TokenTTL)
	}

	if !cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting enabled by default")
	}
	if cfg.RateLimit.RequestsPerSecond != 5 {
		t.Errorf("Expected 5 requests/sec, got %v", cfg.RateLimit.RequestsPerSecond)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SQS_HOST", "127.0.0.1")
	t.Setenv("SQS_PORT", "9090")
	t.Setenv("SQS_MAX_CONNECTIONS", "5000")
	t.Setenv("SQS_REQUEST_TIMEOUT", "60s")
	t.Setenv("SQS_ENABLE_TLS", "true")
	t.Setenv("SQS_DEFAULT_ATOL", "0.01")
	t.Setenv("SQS_DEFAULT_RTOL", "0.001")
	t.Setenv("SQS_DEFAULT_MAX_OUTPUT_CONFIGURATIONS", "25")
	t.Setenv("NUM_THREADS", "8")
	t.Setenv("SQS_AUTH_ENABLED", "true")
	t.Setenv("SQS_AUTH_SECRET", "s3cret")
	t.Setenv("SQS_RATE_LIMIT_ENABLED", "false")

	cfg := LoadFromEnv()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections != 5000 {
		t.Errorf("Expected max connections 5000, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout != 60*time.Second {
		t.Errorf("Expected request timeout 60s, got %v", cfg.Server.RequestTimeout)
	}
	if !cfg.Server.EnableTLS {
		t.Error("Expected TLS enabled")
	}

	if cfg.Engine.DefaultAtol != 0.01 {
		t.Errorf("Expected default atol 0.01, got %v", cfg.Engine.DefaultAtol)
	}
	if cfg.Engine.DefaultRtol != 0.001 {
		t.Errorf("Expected default rtol 0.001, got %v", cfg.Engine.DefaultRtol)
	}
	if cfg.Engine.DefaultMaxOutputConfigurations != 25 {
		t.Errorf("Expected default max output configurations 25, got %d", cfg.Engine.DefaultMaxOutputConfigurations)
	}
	if cfg.Engine.DefaultThreads != 8 {
		t.Errorf("Expected default threads 8, got %d", cfg.Engine.DefaultThreads)
	}

	if !cfg.Auth.Enabled || cfg.Auth.Secret != "s3cret" {
		t.Errorf("Expected auth enabled with secret s3cret, got %+v", cfg.Auth)
	}

	if cfg.RateLimit.Enabled {
		t.Error("Expected rate limiting disabled")
	}
}

func TestLoadFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("SQS_PORT", "invalid")
	cfg := LoadFromEnv()

	if cfg.Server.Port != 8980 {
		t.Errorf("Expected default port 8980 for invalid value, got %d", cfg.Server.Port)
	}
}

func TestLoadFromEnv_DefaultsWhenNotSet(t *testing.T) {
	cfg := LoadFromEnv()
	defaults := Default()

	if cfg.Server.Host != defaults.Server.Host {
		t.Errorf("Expected default host, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != defaults.Server.Port {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
	if cfg.Engine.DefaultMaxOutputConfigurations != defaults.Engine.DefaultMaxOutputConfigurations {
		t.Errorf("Expected default max output configurations, got %d", cfg.Engine.DefaultMaxOutputConfigurations)
	}
	if cfg.RateLimit.Enabled != defaults.RateLimit.Enabled {
		t.Errorf("Expected default rate limit enabled, got %v", cfg.RateLimit.Enabled)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "Valid default config",
			config:  Default(),
			wantErr: false,
		},
		{
			name: "Invalid port (too low)",
			config: &Config{
				Server: ServerConfig{Port: 0},
			},
			wantErr: true,
		},
		{
			name: "Invalid port (too high)",
			config: &Config{
				Server: ServerConfig{Port: 70000},
			},
			wantErr: true,
		},
		{
			name: "Invalid default threads",
			config: &Config{
				Server: ServerConfig{Port: 8980},
				Engine: EngineConfig{DefaultThreads: -1},
			},
			wantErr: true,
		},
		{
			name: "Auth enabled without secret",
			config: &Config{
				Server: ServerConfig{Port: 8980},
				Auth:   AuthConfig{Enabled: true},
			},
			wantErr: true,
		},
		{
			name: "Rate limit enabled with non-positive rate",
			config: &Config{
				Server:    ServerConfig{Port: 8980},
				RateLimit: RateLimitConfig{Enabled: true, RequestsPerSecond: 0},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "localhost",
		Port: 8080,
	}

	addr := cfg.Address()
	expected := "localhost:8080"

	if addr != expected {
		t.Errorf("Expected address %s, got %s", expected, addr)
	}

	defaultCfg := Default()
	addr = defaultCfg.Server.Address()
	expected = "0.0.0.0:8980"

	if addr != expected {
		t.Errorf("Expected default address %s, got %s", expected, addr)
	}
}
