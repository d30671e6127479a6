// Package local implements identity.Authority without an external service.
// Passwords are hashed with bcrypt and kept in a CredentialStore; ID tokens
// are HS256 JWTs that pkg/auth/jwt verifies with the same secret.
//
// It backs development setups, the integration tests, and deployments that
// do not use Firebase.
package local

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/storage"
)

// MinPasswordLength matches the Identity Toolkit minimum.
const MinPasswordLength = 6

// MaxPasswordLength is the longest input bcrypt hashes.
const MaxPasswordLength = 72

// Defaults for Config.
const (
	DefaultIssuer   = "scribe"
	DefaultAudience = "scribe"
	DefaultTokenTTL = time.Hour
)

// dummyHash is compared against when the email is unknown so that unknown
// and known emails take the same time.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// CredentialStore persists password records. Implemented by the storage
// adapters.
type CredentialStore interface {
	// SaveCredential stores a new record. Returns storage.ErrConflict when
	// the email is already registered.
	SaveCredential(ctx context.Context, rec *identity.PasswordRecord) error

	// GetCredentialByEmail returns storage.ErrNotFound for unknown emails.
	GetCredentialByEmail(ctx context.Context, email string) (*identity.PasswordRecord, error)

	// DeleteCredential removes the record for uid. Missing records are not an error.
	DeleteCredential(ctx context.Context, uid string) error
}

// Config configures the local authority.
type Config struct {
	// Secret signs issued tokens (HS256). Required, at least 32 bytes.
	Secret []byte

	Issuer   string
	Audience string
	TokenTTL time.Duration

	// BcryptCost defaults to bcrypt.DefaultCost. Tests use bcrypt.MinCost.
	BcryptCost int
}

// Authority is a self-contained identity.Authority.
type Authority struct {
	store    CredentialStore
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	cost     int

	now func() time.Time
}

var _ identity.Authority = (*Authority)(nil)

// New creates a local authority.
func New(store CredentialStore, cfg Config) (*Authority, error) {
	if store == nil {
		return nil, errors.New("local authority: credential store is required")
	}
	if len(cfg.Secret) < 32 {
		return nil, errors.New("local authority: secret must be at least 32 bytes")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.Audience == "" {
		cfg.Audience = DefaultAudience
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Authority{
		store:    store,
		secret:   cfg.Secret,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TokenTTL,
		cost:     cfg.BcryptCost,
		now:      time.Now,
	}, nil
}

// Claims is the payload of tokens issued by the local authority.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// CreateAccount validates the email and password, stores a bcrypt hash, and
// returns a signed token for the new account.
func (a *Authority) CreateAccount(ctx context.Context, email, password string) (*identity.Credential, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, identity.Reject(identity.CodeWeakPassword,
			fmt.Sprintf("Password should be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		return nil, identity.Reject(identity.CodeWeakPassword,
			fmt.Sprintf("Password should be at most %d bytes", MaxPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	rec := &identity.PasswordRecord{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    a.now().UTC(),
	}
	if err := a.store.SaveCredential(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, identity.Reject(identity.CodeEmailExists, "")
		}
		return nil, fmt.Errorf("saving credential: %w", err)
	}

	debug.Log("identity", "local account created", "uid", rec.UID)
	return a.issue(rec.UID, rec.Email)
}

// SignIn checks the password against the stored hash.
func (a *Authority) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	rec, err := a.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
			return nil, identity.Reject(identity.CodeInvalidCredentials, "")
		}
		return nil, fmt.Errorf("loading credential: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		return nil, identity.Reject(identity.CodeInvalidCredentials, "")
	}
	return a.issue(rec.UID, rec.Email)
}

// DeleteAccount removes the stored credential.
func (a *Authority) DeleteAccount(ctx context.Context, cred *identity.Credential) error {
	if cred == nil || cred.UID == "" {
		return errors.New("local authority: credential has no uid")
	}
	return a.store.DeleteCredential(ctx, cred.UID)
}

func (a *Authority) issue(uid, email string) (*identity.Credential, error) {
	now := a.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    a.issuer,
			Audience:  jwt.ClaimStrings{a.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &identity.Credential{
		UID:       uid,
		Email:     email,
		IDToken:   signed,
		ExpiresIn: a.ttl,
	}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.IndexByte(email, '@'):], ".") {
		return "", identity.Reject(identity.CodeInvalidEmail, "")
	}
	return email, nil
}
