package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/scribe/pkg/debug"
)

// minRefreshInterval limits how often an unknown kid can force a refetch.
const minRefreshInterval = 30 * time.Second

// jwksCache caches RSA public keys fetched from a JWKS endpoint.
// Safe for concurrent use.
type jwksCache struct {
	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey // kid -> public key
	fetchedAt time.Time
	expiresAt time.Time
	ttl       time.Duration
	jwksURL   string
	client    *http.Client
	now       func() time.Time
}

func newJWKSCache(url string, ttl time.Duration, client *http.Client) *jwksCache {
	return &jwksCache{
		keys:    make(map[string]*rsa.PublicKey),
		ttl:     ttl,
		jwksURL: url,
		client:  client,
		now:     time.Now,
	}
}

// getKey returns the RSA public key for the given kid, refreshing the set
// when it has expired or does not contain kid.
func (c *jwksCache) getKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.RLock()
	key, ok := c.keys[kid]
	fresh := c.now().Before(c.expiresAt)
	c.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have refreshed while we waited.
	now := c.now()
	if key, ok := c.keys[kid]; ok && now.Before(c.expiresAt) {
		return key, nil
	}
	if now.Before(c.expiresAt) && now.Sub(c.fetchedAt) < minRefreshInterval {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}

	if err := c.fetchJWKS(ctx); err != nil {
		return nil, err
	}

	key, ok = c.keys[kid]
	if !ok {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

// fetchJWKS fetches the key set and replaces the cache contents.
// Must be called with the write lock held.
func (c *jwksCache) fetchJWKS(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.jwksURL, nil)
	if err != nil {
		return fmt.Errorf("creating JWKS request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading JWKS response: %w", err)
	}

	var jwks jwksDocument
	if err := json.Unmarshal(body, &jwks); err != nil {
		return fmt.Errorf("parsing JWKS: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(jwks.Keys))
	for _, jwk := range jwks.Keys {
		if jwk.Kty != "RSA" || (jwk.Use != "" && jwk.Use != "sig") {
			continue
		}
		pubKey, err := parseRSAPublicKey(jwk)
		if err != nil {
			slog.Warn("skipping JWKS key", "kid", jwk.Kid, "error", err)
			continue
		}
		keys[jwk.Kid] = pubKey
	}

	ttl := c.ttl
	if maxAge, ok := parseMaxAge(resp.Header.Get("Cache-Control")); ok {
		ttl = maxAge
	}

	now := c.now()
	c.keys = keys
	c.fetchedAt = now
	c.expiresAt = now.Add(ttl)

	debug.Log("auth", "JWKS cache refreshed", "keys", len(keys), "url", c.jwksURL, "ttl", ttl)
	return nil
}

// parseMaxAge extracts max-age from a Cache-Control header. Google's
// securetoken endpoint rotates keys and advertises their lifetime this way.
func parseMaxAge(header string) (time.Duration, bool) {
	for _, directive := range strings.Split(header, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.Atoi(value)
		if err != nil || secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

// jwksDocument represents the JSON Web Key Set response.
type jwksDocument struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single JSON Web Key.
type jwkKey struct {
	Kty string `json:"kty"` // Key type (e.g., "RSA")
	Kid string `json:"kid"` // Key ID
	Use string `json:"use"` // Key use (e.g., "sig")
	N   string `json:"n"`   // RSA modulus (base64url-encoded)
	E   string `json:"e"`   // RSA public exponent (base64url-encoded)
}

// parseRSAPublicKey constructs an *rsa.PublicKey from a JWK.
func parseRSAPublicKey(jwk jwkKey) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() {
		return nil, fmt.Errorf("RSA exponent too large")
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
