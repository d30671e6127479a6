package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rhuss/scribe/pkg/auth"
	"github.com/rhuss/scribe/pkg/auth/apikey"
	jwtauth "github.com/rhuss/scribe/pkg/auth/jwt"
	"github.com/rhuss/scribe/pkg/blog"
	"github.com/rhuss/scribe/pkg/config"
	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/identity/firebase"
	"github.com/rhuss/scribe/pkg/identity/local"
	"github.com/rhuss/scribe/pkg/storage/memory"
	"github.com/rhuss/scribe/pkg/storage/postgres"
	"github.com/rhuss/scribe/pkg/storage/sqlite"
)

// documentStore is what every bundled backend provides: the blog documents
// plus the local authority's password records.
type documentStore interface {
	blog.Store
	local.CredentialStore
}

// openStore opens the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (documentStore, error) {
	switch cfg.Storage.Type {
	case config.StorageMemory:
		slog.Info("storage enabled", "type", config.StorageMemory)
		return memory.New(), nil
	case config.StoragePostgres:
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Storage.Postgres.DSN,
			MaxConns:       cfg.Storage.Postgres.MaxConns,
			MigrateOnStart: cfg.Storage.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		slog.Info("storage enabled", "type", config.StoragePostgres, "max_conns", cfg.Storage.Postgres.MaxConns)
		return store, nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		slog.Info("storage enabled", "type", config.StorageSQLite, "path", cfg.Storage.SQLite.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}

// newAuthority builds the configured identity authority. The local
// authority keeps its password records in store.
func newAuthority(cfg *config.Config, store local.CredentialStore) (identity.Authority, error) {
	switch cfg.Identity.Provider {
	case config.ProviderFirebase:
		fb := cfg.Identity.Firebase
		debug.Log("config", "firebase web config",
			"project_id", fb.ProjectID,
			"auth_domain", fb.AuthDomain,
			"storage_bucket", fb.StorageBucket,
			"messaging_sender_id", fb.MessagingSenderID,
			"app_id", fb.AppID,
			"measurement_id", fb.MeasurementID,
		)
		return firebase.New(firebase.Config{
			APIKey:    fb.APIKey,
			ProjectID: fb.ProjectID,
			BaseURL:   fb.BaseURL,
			Timeout:   cfg.Identity.UpstreamTimeout,
		})
	case config.ProviderLocal:
		lc := cfg.Identity.Local
		return local.New(store, local.Config{
			Secret:     []byte(lc.Secret),
			Issuer:     lc.Issuer,
			Audience:   lc.Audience,
			TokenTTL:   lc.TokenTTL,
			BcryptCost: lc.BcryptCost,
		})
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Identity.Provider)
	}
}

// jwtConfig derives token verification settings from the identity provider:
// Firebase ID tokens are RS256 against Google's JWKS with the project as
// audience, local tokens are HS256 with the shared secret.
func jwtConfig(cfg *config.Config) jwtauth.Config {
	jc := jwtauth.Config{
		CacheTTL: cfg.Auth.JWT.CacheTTL,
		Leeway:   cfg.Auth.JWT.Leeway,
	}
	switch cfg.Identity.Provider {
	case config.ProviderFirebase:
		jc.JWKSURL = cfg.Auth.JWT.JWKSURL
		if jc.JWKSURL == "" {
			jc.JWKSURL = firebase.JWKSURL
		}
		jc.Issuer = firebase.Issuer(cfg.Identity.Firebase.ProjectID)
		jc.Audience = cfg.Identity.Firebase.ProjectID
	case config.ProviderLocal:
		jc.Secret = []byte(cfg.Identity.Local.Secret)
		jc.Issuer = cfg.Identity.Local.Issuer
		jc.Audience = cfg.Identity.Local.Audience
	}
	return jc
}

// newAuthMiddleware assembles the authenticator chain (JWT, then static API
// keys) and the optional rate limiter.
func newAuthMiddleware(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	verifier, err := jwtauth.New(jwtConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating token verifier: %w", err)
	}
	authenticators := []auth.Authenticator{verifier}

	if len(cfg.Auth.APIKeys) > 0 {
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Principal: auth.Principal{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
				},
			})
		}
		authenticators = append(authenticators, apikey.New(entries))
		slog.Info("api key authentication enabled", "keys", len(entries))
	}

	var limiter auth.RateLimiter
	rl := cfg.Auth.RateLimit
	if rl.RequestsPerMinute > 0 || len(rl.Tiers) > 0 {
		tiers := make(map[string]auth.TierConfig, len(rl.Tiers))
		for name, rpm := range rl.Tiers {
			tiers[name] = auth.TierConfig{RequestsPerMinute: rpm}
		}
		limiter = auth.NewInProcessLimiter(tiers, rl.RequestsPerMinute)
		slog.Info("rate limiting enabled", "requests_per_minute", rl.RequestsPerMinute, "tiers", len(tiers))
	}

	return auth.Middleware(auth.NewChain(authenticators...), limiter), nil
}
