package config

import (
	"errors"
	"fmt"
	"strings"
)

// minLocalSecretLength matches the HS256 key size requirement of the local
// identity authority.
const minLocalSecretLength = 32

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with a descriptive field path.
func (c *Config) Validate() error {
	var errs []error

	// server.port must be a valid TCP port.
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Identity.UpstreamTimeout <= 0 {
		errs = append(errs, fmt.Errorf("identity.upstream_timeout must be > 0, got %v", c.Identity.UpstreamTimeout))
	}

	switch c.Identity.Provider {
	case ProviderFirebase:
		if c.Identity.Firebase.APIKey == "" && c.Identity.Firebase.APIKeyFile == "" {
			errs = append(errs, fmt.Errorf("identity.firebase.api_key (or FIREBASE_API_KEY) is required when identity.provider is %q", ProviderFirebase))
		}
		if c.Identity.Firebase.ProjectID == "" {
			errs = append(errs, fmt.Errorf("identity.firebase.project_id (or FIREBASE_PROJECT_ID) is required when identity.provider is %q", ProviderFirebase))
		}
	case ProviderLocal:
		if len(c.Identity.Local.Secret) < minLocalSecretLength {
			errs = append(errs, fmt.Errorf("identity.local.secret must be at least %d bytes when identity.provider is %q", minLocalSecretLength, ProviderLocal))
		}
	default:
		errs = append(errs, fmt.Errorf("identity.provider must be %q or %q, got %q", ProviderFirebase, ProviderLocal, c.Identity.Provider))
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres:
		if c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is %q", StoragePostgres))
		}
	case StorageSQLite:
		if c.Storage.SQLite.Path == "" {
			errs = append(errs, fmt.Errorf("storage.sqlite.path is required when storage.type is %q", StorageSQLite))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type must be %q, %q or %q, got %q", StorageMemory, StoragePostgres, StorageSQLite, c.Storage.Type))
	}

	for i, k := range c.Auth.APIKeys {
		if k.Key == "" && k.KeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
		}
		if k.Subject == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d]: subject is required", i))
		}
	}
	if c.Auth.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.requests_per_minute must be >= 0, got %d", c.Auth.RateLimit.RequestsPerMinute))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	return errors.Join(errs...)
}
