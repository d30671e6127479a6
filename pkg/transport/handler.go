package transport

import (
	"context"

	"github.com/rhuss/scribe/pkg/api"
)

// Service is the blog operations contract the HTTP adapter dispatches to.
// Errors returned by its methods are *api.APIError values whose type decides
// the HTTP status.
//
// Protected operations (CreatePost, UpdatePost, DeletePost) read the caller
// from the context, where the auth middleware stored it.
type Service interface {
	// Register creates an identity and the matching account document.
	Register(ctx context.Context, req *api.RegisterRequest) error

	// Login verifies credentials and returns the account plus a bearer token.
	Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error)

	// CreatePost stores a post authored by the caller and returns its ID.
	CreatePost(ctx context.Context, req *api.CreatePostRequest) (string, error)

	// ListPosts returns every post. The result is never nil.
	ListPosts(ctx context.Context) ([]*api.Post, error)

	// UpdatePost changes the set fields of a post the caller owns.
	UpdatePost(ctx context.Context, id string, req *api.UpdatePostRequest) error

	// DeletePost removes a post the caller owns.
	DeletePost(ctx context.Context, id string) error

	// Ready reports whether the backing store is reachable.
	Ready(ctx context.Context) error
}
