// Package jwt provides a JWT authenticator for bearer tokens.
//
// Two key sources are supported and may be combined:
//   - JWKS: RSA-signed tokens verified against keys fetched from a JWKS
//     endpoint (Firebase ID tokens, any OIDC issuer).
//   - Secret: HS256 tokens signed with a shared secret (tokens issued by
//     the local identity authority).
//
// Issuer and audience are validated when configured. Subject, email, and
// scopes are read from configurable claims.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/rhuss/scribe/pkg/auth"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer is the expected JWT issuer (iss claim). If empty, issuer is not validated.
	Issuer string

	// Audience is the expected JWT audience (aud claim). If empty, audience is not validated.
	Audience string

	// JWKSURL is the URL of the JSON Web Key Set used for RS256/384/512 tokens.
	JWKSURL string

	// Secret verifies HS256 tokens. Leave empty to reject HMAC tokens.
	Secret []byte

	// UserClaim is the JWT claim used as the principal subject. Default: "sub".
	UserClaim string

	// EmailClaim is the JWT claim used as the principal email. Default: "email".
	EmailClaim string

	// ScopesClaim is the JWT claim used for authorization scopes. Default: "scope".
	// The value can be a space-separated string or a JSON array.
	ScopesClaim string

	// MetadataClaims are copied into Principal.Metadata when present as strings.
	MetadataClaims []string

	// CacheTTL controls how long JWKS keys are cached when the endpoint sends
	// no Cache-Control max-age. Default: 1 hour.
	CacheTTL time.Duration

	// Leeway tolerates clock skew in exp/nbf/iat checks.
	Leeway time.Duration

	// HTTPClient allows injecting a custom HTTP client (useful for testing).
	// If nil, a client with a 10s timeout is used.
	HTTPClient *http.Client
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.EmailClaim == "" {
		c.EmailClaim = "email"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 1 * time.Hour
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
}

// Authenticator validates JWT bearer tokens.
type Authenticator struct {
	config    Config
	methods   []string
	jwksCache *jwksCache
}

// New creates a JWT authenticator with the given configuration. At least one
// of JWKSURL and Secret must be set.
func New(cfg Config) (*Authenticator, error) {
	cfg.applyDefaults()

	a := &Authenticator{config: cfg}
	if cfg.JWKSURL != "" {
		a.methods = append(a.methods, "RS256", "RS384", "RS512")
		a.jwksCache = newJWKSCache(cfg.JWKSURL, cfg.CacheTTL, cfg.HTTPClient)
	}
	if len(cfg.Secret) > 0 {
		a.methods = append(a.methods, "HS256")
	}
	if len(a.methods) == 0 {
		return nil, errors.New("jwt: either jwks_url or secret is required")
	}
	return a, nil
}

// Authenticate reads the token from the Authorization header, validates it
// as a JWT, and returns a principal on success.
//
// Decision outcomes:
//   - Abstain: no token, or a token that is not JWT-shaped
//   - No: JWT present but invalid (expired, wrong issuer, bad signature, key fetch failure)
//   - Yes: valid JWT with populated Principal
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.AuthResult {
	tokenStr := auth.BearerToken(r)
	if !LooksLikeJWT(tokenStr) {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	token, err := jwtlib.Parse(tokenStr, func(token *jwtlib.Token) (any, error) {
		return a.keyFor(ctx, token)
	}, a.parserOptions()...)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("invalid JWT: %w", err),
		}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      errors.New("invalid JWT claims"),
		}
	}

	subject := claimString(claims, a.config.UserClaim)
	if subject == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("JWT missing %q claim", a.config.UserClaim),
		}
	}

	principal := &auth.Principal{
		Subject:  subject,
		Email:    claimString(claims, a.config.EmailClaim),
		Scopes:   extractScopes(claims, a.config.ScopesClaim),
		Metadata: make(map[string]string),
	}
	for _, name := range a.config.MetadataClaims {
		if v := claimString(claims, name); v != "" {
			principal.Metadata[name] = v
		}
	}

	return auth.AuthResult{
		Decision:  auth.Yes,
		Principal: principal,
	}
}

// keyFor selects the verification key by signing method.
func (a *Authenticator) keyFor(ctx context.Context, token *jwtlib.Token) (any, error) {
	switch token.Method.(type) {
	case *jwtlib.SigningMethodHMAC:
		if len(a.config.Secret) == 0 {
			return nil, errors.New("HMAC tokens are not accepted")
		}
		return a.config.Secret, nil

	case *jwtlib.SigningMethodRSA:
		if a.jwksCache == nil {
			return nil, errors.New("RSA tokens are not accepted")
		}
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, errors.New("token missing kid header")
		}
		key, err := a.jwksCache.getKey(ctx, kid)
		if err != nil {
			return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, err)
		}
		return key, nil

	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// parserOptions builds JWT parser options based on the configuration.
func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods(a.methods),
		jwtlib.WithExpirationRequired(),
	}
	if a.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.config.Audience))
	}
	if a.config.Leeway > 0 {
		opts = append(opts, jwtlib.WithLeeway(a.config.Leeway))
	}
	return opts
}

// LooksLikeJWT reports whether s has the three dot-separated segments of a
// compact JWS.
func LooksLikeJWT(s string) bool {
	return s != "" && strings.Count(s, ".") == 2
}

// claimString extracts a string value from JWT claims.
// Returns empty string if the claim is missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// extractScopes extracts scopes from JWT claims.
// The scope claim can be either a space-separated string or a JSON array.
func extractScopes(claims jwtlib.MapClaims, key string) []string {
	switch val := claims[key].(type) {
	case string:
		parts := strings.Fields(val)
		if len(parts) == 0 {
			return nil
		}
		return parts
	case []any:
		var scopes []string
		for _, item := range val {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	return nil
}
