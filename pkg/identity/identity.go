package identity

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Credential is the result of a successful account creation or sign-in.
type Credential struct {
	// UID is the principal identifier assigned by the authority.
	UID string

	Email string

	// IDToken is the bearer token the client presents on protected routes.
	IDToken string

	// RefreshToken is returned by authorities that support refresh. May be empty.
	RefreshToken string

	// ExpiresIn is the lifetime of IDToken.
	ExpiresIn time.Duration
}

// Authority creates and authenticates email/password accounts.
type Authority interface {
	// CreateAccount registers a new account. Returns a *RejectedError when
	// the authority refuses the request (email taken, weak password, ...).
	CreateAccount(ctx context.Context, email, password string) (*Credential, error)

	// SignIn checks the password and returns a fresh credential. Returns a
	// *RejectedError for unknown emails and wrong passwords.
	SignIn(ctx context.Context, email, password string) (*Credential, error)

	// DeleteAccount removes the account behind cred. Used to roll back a
	// registration whose account record could not be written.
	DeleteAccount(ctx context.Context, cred *Credential) error
}

// PasswordRecord is a stored email/password account of the local authority.
type PasswordRecord struct {
	UID          string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Provider error codes shared by both authorities. They follow the codes of
// the Identity Toolkit API so clients see the same values either way.
const (
	CodeEmailExists        = "EMAIL_EXISTS"
	CodeInvalidEmail       = "INVALID_EMAIL"
	CodeWeakPassword       = "WEAK_PASSWORD"
	CodeInvalidCredentials = "INVALID_LOGIN_CREDENTIALS"
)

// ErrRejected matches any *RejectedError via errors.Is.
var ErrRejected = errors.New("rejected by identity authority")

// RejectedError is returned when the authority understood the request and
// refused it because of the user-supplied values.
type RejectedError struct {
	Code    string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" || e.Message == e.Code {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is(err, ErrRejected) true for any RejectedError.
func (e *RejectedError) Is(target error) bool {
	return target == ErrRejected
}

// Reject builds a RejectedError.
func Reject(code, message string) *RejectedError {
	return &RejectedError{Code: code, Message: message}
}
