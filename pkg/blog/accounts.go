package blog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/storage"
)

// Register creates an identity with the authority and then the account
// record keyed by its uid. If the record cannot be written the identity is
// deleted again so the email can be reused.
func (s *Service) Register(ctx context.Context, req *api.RegisterRequest) error {
	if apiErr := api.ValidateRegister(req); apiErr != nil {
		return apiErr
	}
	email := strings.TrimSpace(req.Email)

	cred, err := call(ctx, s, "identity", "create_account", func(ctx context.Context) (*identity.Credential, error) {
		return s.authority.CreateAccount(ctx, email, req.Password)
	})
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return rejection(err)
		}
		return upstreamError(ctx, "create_account", err, msgRegisterFailed)
	}

	acct := api.NewAccount(strings.TrimSpace(req.Username), email)
	_, err = call(ctx, s, "store", "put_account", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.PutAccount(ctx, cred.UID, acct)
	})
	if err != nil {
		apiErr := upstreamError(ctx, "put_account", err, msgRegisterFailed)
		s.rollbackIdentity(ctx, cred)
		return apiErr
	}

	logDebug("account registered", "uid", cred.UID)
	return nil
}

// rollbackIdentity deletes an identity whose account record was not
// written. It runs detached from ctx's cancellation so a client disconnect
// does not leave the identity behind.
func (s *Service) rollbackIdentity(ctx context.Context, cred *identity.Credential) {
	_, err := call(context.WithoutCancel(ctx), s, "identity", "delete_account", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.authority.DeleteAccount(ctx, cred)
	})
	if err != nil {
		slog.ErrorContext(ctx, "registration rollback failed; identity has no account record",
			"uid", cred.UID,
			"error", err,
		)
		return
	}
	slog.WarnContext(ctx, "registration rolled back", "uid", cred.UID)
}

// Login signs in with the authority and returns the account record together
// with the bearer token for protected routes.
func (s *Service) Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error) {
	if apiErr := api.ValidateLogin(req); apiErr != nil {
		return nil, apiErr
	}

	cred, err := call(ctx, s, "identity", "sign_in", func(ctx context.Context) (*identity.Credential, error) {
		return s.authority.SignIn(ctx, strings.TrimSpace(req.Email), req.Password)
	})
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			return nil, rejection(err)
		}
		return nil, upstreamError(ctx, "sign_in", err, msgLoginFailed)
	}

	acct, err := call(ctx, s, "store", "get_account", func(ctx context.Context) (*api.Account, error) {
		return s.store.GetAccount(ctx, cred.UID)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, api.NewNotFoundError(msgUserNotFound)
		}
		return nil, upstreamError(ctx, "get_account", err, msgLoginFailed)
	}
	if acct.Posts == nil {
		acct.Posts = []string{}
	}

	return &api.LoginResponse{
		Message:   api.MessageLoggedIn,
		Data:      acct,
		Token:     cred.IDToken,
		ExpiresIn: int64(cred.ExpiresIn.Seconds()),
	}, nil
}
