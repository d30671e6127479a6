package blog

import (
	"context"

	"github.com/rhuss/scribe/pkg/api"
)

// Store persists accounts and posts. Implementations return
// storage.ErrNotFound for missing documents and must be safe for
// concurrent use.
type Store interface {
	// PutAccount writes the account document keyed by uid, replacing any
	// existing one.
	PutAccount(ctx context.Context, uid string, acct *api.Account) error

	// GetAccount reads the account document keyed by uid.
	GetAccount(ctx context.Context, uid string) (*api.Account, error)

	// CreatePost stores a new post, assigns its ID, and returns it.
	CreatePost(ctx context.Context, post *api.Post) (string, error)

	GetPost(ctx context.Context, id string) (*api.Post, error)

	// ListPosts returns every post.
	ListPosts(ctx context.Context) ([]*api.Post, error)

	// UpdatePost applies the non-nil fields of u.
	UpdatePost(ctx context.Context, id string, u api.PostUpdate) error

	DeletePost(ctx context.Context, id string) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	Close() error
}
