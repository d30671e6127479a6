// Package config provides unified configuration for the scribe server.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SCRIBE_ prefix)
//  4. Firebase web-app variables (FIREBASE_ prefix)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import "time"

// Identity provider names.
const (
	ProviderFirebase = "firebase"
	ProviderLocal    = "local"
)

// Storage backend names.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds all configuration for the scribe server.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Storage       StorageConfig       `yaml:"storage"`
	Auth          AuthConfig          `yaml:"auth"`
	Log           LogConfig           `yaml:"log"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port              int           `yaml:"port"`                // default: 3000
	MaxBodySize       int64         `yaml:"max_body_size"`       // default: 1 MiB
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
}

// IdentityConfig selects and configures the identity authority.
type IdentityConfig struct {
	Provider        string         `yaml:"provider"`         // "firebase" or "local", default: "firebase"
	UpstreamTimeout time.Duration  `yaml:"upstream_timeout"` // default: 10s
	Firebase        FirebaseConfig `yaml:"firebase"`
	Local           LocalConfig    `yaml:"local"`
}

// FirebaseConfig mirrors the Firebase web-app configuration. Only APIKey
// and ProjectID are used by the server; the rest are carried for parity
// with client configuration and logged at startup.
type FirebaseConfig struct {
	APIKey            string `yaml:"api_key"`
	APIKeyFile        string `yaml:"api_key_file"` // _file variant for api_key
	AuthDomain        string `yaml:"auth_domain"`
	ProjectID         string `yaml:"project_id"`
	StorageBucket     string `yaml:"storage_bucket"`
	MessagingSenderID string `yaml:"messaging_sender_id"`
	AppID             string `yaml:"app_id"`
	MeasurementID     string `yaml:"measurement_id"`

	// BaseURL overrides the Identity Toolkit endpoint (auth emulator).
	BaseURL string `yaml:"base_url"`
}

// LocalConfig configures the self-contained identity authority.
type LocalConfig struct {
	Secret     string        `yaml:"secret"`
	SecretFile string        `yaml:"secret_file"` // _file variant for secret
	Issuer     string        `yaml:"issuer"`      // default: "scribe"
	Audience   string        `yaml:"audience"`    // default: "scribe"
	TokenTTL   time.Duration `yaml:"token_ttl"`   // default: 1h
	BcryptCost int           `yaml:"bcrypt_cost"` // default: bcrypt.DefaultCost
}

// StorageConfig holds document store settings.
type StorageConfig struct {
	Type     string         `yaml:"type"` // "memory", "postgres" or "sqlite", default: "memory"
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "scribe.db"
}

// AuthConfig holds bearer-token verification and rate limit settings.
type AuthConfig struct {
	JWT       JWTConfig       `yaml:"jwt"`
	APIKeys   []APIKeyConfig  `yaml:"api_keys"` // static service keys, optional
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// JWTConfig tunes token verification. Issuer, audience and key source are
// derived from the identity provider.
type JWTConfig struct {
	JWKSURL  string        `yaml:"jwks_url"`  // default: Google securetoken JWKS
	CacheTTL time.Duration `yaml:"cache_ttl"` // default: 1h
	Leeway   time.Duration `yaml:"leeway"`    // default: 30s
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key"`
	KeyFile     string `yaml:"key_file"` // _file variant for key
	Subject     string `yaml:"subject"`
	ServiceTier string `yaml:"service_tier"`
}

// RateLimitConfig holds per-principal limits on protected routes.
type RateLimitConfig struct {
	RequestsPerMinute int            `yaml:"requests_per_minute"` // 0 disables limiting
	Tiers             map[string]int `yaml:"tiers"`               // tier name -> requests per minute
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // "DEBUG", "INFO", "WARN", "ERROR", default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:              3000,
			MaxBodySize:       1 << 20,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Identity: IdentityConfig{
			Provider:        ProviderFirebase,
			UpstreamTimeout: 10 * time.Second,
			Local: LocalConfig{
				Issuer:   "scribe",
				Audience: "scribe",
				TokenTTL: time.Hour,
			},
		},
		Storage: StorageConfig{
			Type: StorageMemory,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
			SQLite: SQLiteConfig{
				Path: "scribe.db",
			},
		},
		Auth: AuthConfig{
			JWT: JWTConfig{
				CacheTTL: time.Hour,
				Leeway:   30 * time.Second,
			},
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}
