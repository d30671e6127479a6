// Package blog implements the account and post operations of scribe on top
// of an identity authority and a document store.
//
// Every operation returns either a result or an *api.APIError. Each call to
// the authority or the store runs under its own deadline, is wrapped in a
// tracing span, and is counted in the upstream metrics.
package blog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/auth"
	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/storage"
)

// DefaultUpstreamTimeout bounds each authority and store call.
const DefaultUpstreamTimeout = 10 * time.Second

// Response messages.
const (
	msgUserNotFound    = "User not found"
	msgNotOwner        = "You do not own this post"
	msgPostNotFound    = "Post not found"
	msgRegisterFailed  = "Error registering user"
	msgLoginFailed     = "Error logging in"
	msgCreateFailed    = "Error creating post"
	msgListFailed      = "Error fetching blogs"
	msgUpdateFailed    = "Error updating post"
	msgDeleteFailed    = "Error deleting post"
	msgUpstreamTimeout = "upstream request timed out"
	msgInvalidPostID   = "invalid blog id"
)

// Config configures a Service.
type Config struct {
	// UpstreamTimeout bounds each authority and store call.
	// Default: DefaultUpstreamTimeout.
	UpstreamTimeout time.Duration

	// Now returns the current time. Default: time.Now.
	Now func() time.Time

	// Tracer wraps upstream calls in spans. Default: the global provider's
	// tracer for this package.
	Tracer trace.Tracer
}

// Service runs the blog operations.
type Service struct {
	store     Store
	authority identity.Authority
	timeout   time.Duration
	now       func() time.Time
	tracer    trace.Tracer
}

// New creates a Service.
func New(store Store, authority identity.Authority, cfg Config) (*Service, error) {
	if store == nil {
		return nil, errors.New("blog: store is required")
	}
	if authority == nil {
		return nil, errors.New("blog: identity authority is required")
	}
	if cfg.UpstreamTimeout <= 0 {
		cfg.UpstreamTimeout = DefaultUpstreamTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("github.com/rhuss/scribe/pkg/blog")
	}
	return &Service{
		store:     store,
		authority: authority,
		timeout:   cfg.UpstreamTimeout,
		now:       cfg.Now,
		tracer:    cfg.Tracer,
	}, nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	_, err := call(ctx, s, "store", "health_check", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.HealthCheck(ctx)
	})
	return err
}

// principal returns the caller attached by the auth middleware.
func principal(ctx context.Context) (*auth.Principal, *api.APIError) {
	p := auth.PrincipalFromContext(ctx)
	if p == nil || p.Subject == "" {
		return nil, api.NewUnauthorizedError()
	}
	return p, nil
}

// upstreamError converts a failed authority or store call into an APIError.
// Deadline expiry becomes upstream_timeout; anything else is a server error
// with msg. The cause is logged, not returned to the client.
func upstreamError(ctx context.Context, op string, err error, msg string) *api.APIError {
	if errors.Is(err, context.DeadlineExceeded) {
		slog.WarnContext(ctx, "upstream call timed out", "operation", op, "error", err)
		return api.NewUpstreamTimeoutError(msgUpstreamTimeout)
	}
	slog.ErrorContext(ctx, "upstream call failed", "operation", op, "error", err)
	return api.NewServerError(msg)
}

// rejection converts an authority rejection into a 400 carrying the
// provider's code and message.
func rejection(err error) *api.APIError {
	var rej *identity.RejectedError
	if !errors.As(err, &rej) {
		return api.NewInvalidRequestError("", err.Error())
	}
	param := ""
	switch rej.Code {
	case identity.CodeEmailExists, identity.CodeInvalidEmail:
		param = "email"
	case identity.CodeWeakPassword:
		param = "password"
	}
	return api.NewInvalidRequestError(param, rej.Error())
}

// outcome classifies an upstream error for metrics and spans.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, identity.ErrRejected):
		return "rejected"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

func logDebug(op string, args ...any) {
	debug.Log("blog", op, args...)
}
