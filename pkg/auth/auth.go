package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the principal is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator cannot handle the credentials type.
	// The chain continues to the next authenticator.
	Abstain
)

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision  AuthDecision
	Principal *Principal // populated only when Decision == Yes
	Err       error      // populated only when Decision == No
}

// Principal is the authenticated caller of a request.
type Principal struct {
	// Subject is the unique identifier (required, non-empty). For end users
	// it is the uid assigned by the identity authority and the authorId of
	// their posts.
	Subject string

	// Email is set when the credential carries one.
	Email string

	// ServiceTier selects the rate limit.
	ServiceTier string

	// Scopes lists the authorization scopes granted.
	Scopes []string

	// Metadata carries other credential claims.
	Metadata map[string]string
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator
}

// NewChain creates a chain of the given authenticators.
func NewChain(authenticators ...Authenticator) *AuthChain {
	return &AuthChain{Authenticators: authenticators}
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, the result is No.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}
	return AuthResult{Decision: No, Err: ErrUnauthenticated}
}

// BearerToken returns the credential in the Authorization header. A leading
// "Bearer " scheme (any case) is stripped; a bare token is returned as is.
// Returns "" when the header is absent or blank.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) >= 7 && strings.EqualFold(h[:7], "bearer ") {
		h = strings.TrimSpace(h[7:])
	}
	return h
}
