// Package firebase implements identity.Authority against the Firebase
// Identity Toolkit REST API (accounts:signUp, accounts:signInWithPassword,
// accounts:delete).
//
// ID tokens returned by this authority are RS256 JWTs signed by Google's
// securetoken service; pkg/auth/jwt verifies them using the JWKS returned by
// JWKSURL with the issuer and audience derived from the project ID.
package firebase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/identity"
)

const (
	// DefaultBaseURL is the Identity Toolkit endpoint.
	DefaultBaseURL = "https://identitytoolkit.googleapis.com"

	// JWKSURL serves the public keys that sign Firebase ID tokens.
	JWKSURL = "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com"
)

// Issuer returns the expected "iss" claim of ID tokens for a project.
func Issuer(projectID string) string {
	return "https://securetoken.google.com/" + projectID
}

// Config holds the Firebase project settings used by the authority.
type Config struct {
	// APIKey is the web API key of the project (required).
	APIKey string

	// ProjectID identifies the project (required for token verification).
	ProjectID string

	// BaseURL overrides DefaultBaseURL. Used for the auth emulator and tests.
	BaseURL string

	// Timeout bounds each HTTP call. Default: 10s.
	Timeout time.Duration

	// HTTPClient allows injecting a custom client. If nil, one is created
	// with Timeout.
	HTTPClient *http.Client
}

// Authority calls the Identity Toolkit REST API.
type Authority struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

var _ identity.Authority = (*Authority)(nil)

// New creates a Firebase authority.
func New(cfg Config) (*Authority, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("firebase: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Authority{
		httpClient: client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}, nil
}

// passwordRequest is the body of signUp and signInWithPassword.
type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

// tokenResponse is the success body of signUp and signInWithPassword.
type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"` // seconds, as a decimal string
}

// CreateAccount calls accounts:signUp.
func (a *Authority) CreateAccount(ctx context.Context, email, password string) (*identity.Credential, error) {
	var resp tokenResponse
	if err := a.post(ctx, "accounts:signUp", passwordRequest{email, password, true}, &resp); err != nil {
		return nil, fmt.Errorf("firebase sign up: %w", err)
	}
	return resp.credential()
}

// SignIn calls accounts:signInWithPassword.
func (a *Authority) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	var resp tokenResponse
	if err := a.post(ctx, "accounts:signInWithPassword", passwordRequest{email, password, true}, &resp); err != nil {
		return nil, fmt.Errorf("firebase sign in: %w", err)
	}
	return resp.credential()
}

// DeleteAccount calls accounts:delete with the account's own ID token.
func (a *Authority) DeleteAccount(ctx context.Context, cred *identity.Credential) error {
	if cred == nil || cred.IDToken == "" {
		return errors.New("firebase delete: credential has no id token")
	}
	body := struct {
		IDToken string `json:"idToken"`
	}{cred.IDToken}
	if err := a.post(ctx, "accounts:delete", body, nil); err != nil {
		return fmt.Errorf("firebase delete: %w", err)
	}
	return nil
}

// errNoLocalID reports a success response that names no account.
var errNoLocalID = errors.New("firebase: response carries no localId")

func (r *tokenResponse) credential() (*identity.Credential, error) {
	if r.LocalID == "" {
		return nil, errNoLocalID
	}
	cred := &identity.Credential{
		UID:          r.LocalID,
		Email:        r.Email,
		IDToken:      r.IDToken,
		RefreshToken: r.RefreshToken,
	}
	if secs, err := strconv.Atoi(r.ExpiresIn); err == nil {
		cred.ExpiresIn = time.Duration(secs) * time.Second
	}
	return cred, nil
}

// post sends a JSON request to /v1/{method}?key=... and decodes the reply
// into out (when non-nil).
func (a *Authority) post(ctx context.Context, method string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := a.baseURL + "/v1/" + method + "?key=" + url.QueryEscape(a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	debug.Log("identity", "firebase request", "method", method)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling identity toolkit: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return mapHTTPError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parsing identity toolkit response: %w", err)
	}
	return nil
}
