package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SCRIBE_CONFIG env, ./config.yaml, /etc/scribe/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	// Start with defaults.
	cfg := Defaults()

	// Discover and load YAML config file.
	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	// Resolve _file references.
	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	// Validate.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SCRIBE_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/scribe/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	// Explicit path takes priority.
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("SCRIBE_CONFIG"); envPath != "" {
		return envPath
	}

	// Check common locations.
	candidates := []string{
		"config.yaml",
		"/etc/scribe/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so typos do not pass silently.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// envString copies a non-empty environment variable into dst.
func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

// applyEnvOverrides maps environment variables to config fields. Malformed
// numeric or duration values are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []string
	envInt := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not an integer", name, v))
				return
			}
			*dst = n
		}
	}
	envDuration := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %q is not a duration", name, v))
				return
			}
			*dst = d
		}
	}

	envInt("PORT", &cfg.Server.Port)
	envInt("SCRIBE_PORT", &cfg.Server.Port)
	envString("SCRIBE_IDENTITY_PROVIDER", &cfg.Identity.Provider)
	envDuration("SCRIBE_UPSTREAM_TIMEOUT", &cfg.Identity.UpstreamTimeout)
	envString("SCRIBE_LOCAL_SECRET", &cfg.Identity.Local.Secret)
	envString("SCRIBE_STORAGE", &cfg.Storage.Type)
	envString("SCRIBE_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)
	envString("SCRIBE_SQLITE_PATH", &cfg.Storage.SQLite.Path)
	envInt("SCRIBE_RATE_LIMIT_RPM", &cfg.Auth.RateLimit.RequestsPerMinute)
	envString("SCRIBE_LOG_FORMAT", &cfg.Log.Format)

	// SCRIBE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("SCRIBE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			errs = append(errs, "SCRIBE_API_KEYS: "+err.Error())
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	applyFirebaseEnv(&cfg.Identity.Firebase)

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// applyFirebaseEnv reads the Firebase web-app variables. FIREBASE_API_ID is
// an older spelling of FIREBASE_APP_ID and loses to it when both are set.
func applyFirebaseEnv(fb *FirebaseConfig) {
	envString("FIREBASE_API_KEY", &fb.APIKey)
	envString("FIREBASE_AUTH_DOMAIN", &fb.AuthDomain)
	envString("FIREBASE_PROJECT_ID", &fb.ProjectID)
	envString("FIREBASE_STORAGE_BUCKET", &fb.StorageBucket)
	envString("FIREBASE_MESSAGING_SENDER_ID", &fb.MessagingSenderID)
	envString("FIREBASE_API_ID", &fb.AppID)
	envString("FIREBASE_APP_ID", &fb.AppID)
	envString("FIREBASE_MEASUREMENT_ID", &fb.MeasurementID)
	envString("FIREBASE_AUTH_EMULATOR_URL", &fb.BaseURL)
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// identity.firebase.api_key_file -> identity.firebase.api_key
	if cfg.Identity.Firebase.APIKeyFile != "" && cfg.Identity.Firebase.APIKey == "" {
		val, err := readSecretFile(cfg.Identity.Firebase.APIKeyFile)
		if err != nil {
			return fmt.Errorf("identity.firebase.api_key_file: %w", err)
		}
		cfg.Identity.Firebase.APIKey = val
	}

	// identity.local.secret_file -> identity.local.secret
	if cfg.Identity.Local.SecretFile != "" && cfg.Identity.Local.Secret == "" {
		val, err := readSecretFile(cfg.Identity.Local.SecretFile)
		if err != nil {
			return fmt.Errorf("identity.local.secret_file: %w", err)
		}
		cfg.Identity.Local.Secret = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
