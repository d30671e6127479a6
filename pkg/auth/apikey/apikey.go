// Package apikey provides an API key authenticator for service principals.
// Bearer tokens are checked against a static key store using SHA-256
// hashing and constant-time comparison.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"maps"
	"net/http"
	"strings"

	"github.com/rhuss/scribe/pkg/auth"
)

// KeyEntry maps a key hash to a principal.
type KeyEntry struct {
	KeyHash   [32]byte
	Principal auth.Principal
}

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key       string
	Principal auth.Principal
}

// Authenticator validates bearer tokens against a static key store.
type Authenticator struct {
	keys []KeyEntry
}

// New creates an API key authenticator from a list of raw keys and principals.
// Keys are hashed immediately; plaintext keys are not stored.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, KeyEntry{
			KeyHash:   sha256.Sum256([]byte(e.Key)),
			Principal: e.Principal,
		})
	}
	return a
}

// Authenticate looks the token up in the key store.
//
// Decision outcomes:
//   - Abstain: no token, or a JWT-shaped token (left to the JWT authenticator)
//   - No: opaque token that matches no key
//   - Yes: known key
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	token := auth.BearerToken(r)
	if token == "" || strings.Count(token, ".") == 2 {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenHash := sha256.Sum256([]byte(token))

	// Compare against every entry so timing does not depend on the match position.
	match := -1
	for i := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], a.keys[i].KeyHash[:]) == 1 {
			match = i
		}
	}
	if match < 0 {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	// Copy so handlers cannot mutate the configured principal.
	p := a.keys[match].Principal
	p.Scopes = append([]string(nil), p.Scopes...)
	p.Metadata = maps.Clone(p.Metadata)
	return auth.AuthResult{Decision: auth.Yes, Principal: &p}
}
