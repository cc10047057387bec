// Package config loads and validates service configuration: a JSON file
// on disk, overridden by environment variables for anything
// deployment-sensitive (credentials, ports). This mirrors the teacher
// repo's pkg/config exactly in shape — Load falls back to defaults when
// no file exists, Save round-trips an effective config back to disk, and
// applyEnvironmentOverrides runs after the file is parsed.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Pool     PoolConfig     `json:"pool"`
	Routing  RoutingConfig  `json:"routing"`
	Auth     AuthConfig     `json:"auth"`
}

// ServerConfig contains the HTTP/JSON and gRPC listener settings. The
// actual gRPC binary framing is out of this engine's scope (spec §1); the
// port is still configurable here because operators deploy both behind
// the same process supervisor.
type ServerConfig struct {
	// HostREST is the REST bind address, e.g. "0.0.0.0".
	HostREST string `json:"host_rest"`

	// PortREST is the HTTP server port (spec §6: DOCKER_PORT_REST, default 8000).
	PortREST int `json:"port_rest"`

	// PortGRPC is the gRPC server port (spec §6: DOCKER_PORT_GRPC, default 50051).
	// Reserved for the transport layer; unused by the engine itself.
	PortGRPC int `json:"port_grpc"`
}

// DatabaseConfig contains the spatial backend connection settings (spec §6).
type DatabaseConfig struct {
	// Host is the database server hostname (PG_HOST).
	Host string `json:"host"`

	// Port is the database server port (PG_PORT).
	Port int `json:"port"`

	// Database is the database name (PG_DBNAME).
	Database string `json:"database"`

	// Username for database authentication (PG_USER).
	Username string `json:"username"`

	// Password for database authentication. Not sourced from the config
	// file in production; set via PG_PASSWORD.
	Password string `json:"password"`

	// SSLMode for PostgreSQL connections (PG_SSLMODE: disable, require,
	// verify-ca, verify-full).
	SSLMode string `json:"ssl_mode"`

	// CACertPath, ClientCertPath, ClientKeyPath point at the mutual-TLS
	// material for verify-full connections (DB_CA_CERT, DB_CLIENT_CERT,
	// DB_CLIENT_KEY).
	CACertPath     string `json:"ca_cert_path"`
	ClientCertPath string `json:"client_cert_path"`
	ClientKeyPath  string `json:"client_key_path"`

	// MaxOpenConns/MaxIdleConns size the connection pool.
	MaxOpenConns int `json:"max_open_conns"`
	MaxIdleConns int `json:"max_idle_conns"`
}

// PoolConfig governs the bounded, FIFO, deadline-aware acquisition
// described in spec §5 ("A bounded connection pool to the spatial
// backend (size configurable; min/max)... Pool acquisition is FIFO with
// a deadline").
type PoolConfig struct {
	// MinConns/MaxConns bound logical concurrent requests against the backend.
	MinConns int `json:"min_conns"`
	MaxConns int `json:"max_conns"`

	// AcquireTimeoutMS is the default wait before a pool acquisition is
	// treated as a backend-overload signal (apierr.StoreUnavailable).
	AcquireTimeoutMS int `json:"acquire_timeout_ms"`
}

// RoutingConfig tunes the graph builder, A* engine, and intersection
// engine thresholds named throughout spec §4.
type RoutingConfig struct {
	// CandidateToleranceSeconds is the tolerance window (spec §4.4: "1h")
	// within which an aircraft's most recent sample is still usable as a
	// candidate node location.
	CandidateToleranceSeconds int `json:"candidate_tolerance_seconds"`

	// IntersectionThresholdM is the THRESHOLD meter distance the
	// recursive bisection intersection check (spec §4.6) uses, default 300.
	IntersectionThresholdM float64 `json:"intersection_threshold_m"`

	// MinSegmentLenM is the MIN_LEN floor (spec §4.6) below which
	// bisection stops and a close-range hit is declared, default 10.
	MinSegmentLenM float64 `json:"min_segment_len_m"`

	// SegmentizeMaxLenM is a sub-segment length bound (spec §4.1
	// segmentize); no component reads it.
	SegmentizeMaxLenM float64 `json:"segmentize_max_len_m"`
}

// AuthConfig configures the transport-boundary credential layer. Per
// spec §1's non-goals, authn/z policy itself is out of scope; this is
// only the boundary the spec assumes exists.
type AuthConfig struct {
	JWTSecret            string `json:"jwt_secret"`
	TokenDurationMinutes int    `json:"token_duration_minutes"`
}

// Load reads configuration from a JSON file, falling back to
// DefaultConfig if the file does not exist, then applies environment
// variable overrides.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	return cfg, nil
}

// Save writes the effective configuration to a JSON file, creating the
// parent directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults. Only the
// listener ports have spec-mandated defaults (§6); everything else is a
// reasonable starting point for local development.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			HostREST: "0.0.0.0",
			PortREST: 8000,
			PortGRPC: 50051,
		},
		Database: DatabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "gis",
			Username:     "gis",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Pool: PoolConfig{
			MinConns:         2,
			MaxConns:         25,
			AcquireTimeoutMS: 250,
		},
		Routing: RoutingConfig{
			CandidateToleranceSeconds: 3600,
			IntersectionThresholdM:    300,
			MinSegmentLenM:            10,
			SegmentizeMaxLenM:         500,
		},
		Auth: AuthConfig{
			JWTSecret:            "dev-secret-change-in-production",
			TokenDurationMinutes: 24 * 60,
		},
	}
}

// applyEnvironmentOverrides applies the spec §6 environment variables,
// keeping deployment secrets out of the config file.
func (c *Config) applyEnvironmentOverrides() {
	if v := os.Getenv("PG_USER"); v != "" {
		c.Database.Username = v
	}
	if v := os.Getenv("PG_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("PG_DBNAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("PG_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("PG_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("PG_SSLMODE"); v != "" {
		c.Database.SSLMode = v
	}
	if v := os.Getenv("DB_CA_CERT"); v != "" {
		c.Database.CACertPath = v
	}
	if v := os.Getenv("DB_CLIENT_CERT"); v != "" {
		c.Database.ClientCertPath = v
	}
	if v := os.Getenv("DB_CLIENT_KEY"); v != "" {
		c.Database.ClientKeyPath = v
	}
	if v := os.Getenv("DOCKER_PORT_REST"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.PortREST = port
		}
	}
	if v := os.Getenv("DOCKER_PORT_GRPC"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.PortGRPC = port
		}
	}
	if v := os.Getenv("GIS_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}
