package blog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/debug"
	"github.com/rhuss/scribe/pkg/observability"
	"github.com/rhuss/scribe/pkg/storage"
)

// CreatePost stores a post authored by the calling principal and returns
// its ID.
func (s *Service) CreatePost(ctx context.Context, req *api.CreatePostRequest) (string, error) {
	p, apiErr := principal(ctx)
	if apiErr != nil {
		return "", apiErr
	}
	if apiErr := api.ValidateCreatePost(req); apiErr != nil {
		return "", apiErr
	}

	post := &api.Post{
		Title:     req.Title,
		Content:   req.Content,
		AuthorID:  p.Subject,
		CreatedAt: s.now().UTC(),
	}
	id, err := call(ctx, s, "store", "create_post", func(ctx context.Context) (string, error) {
		return s.store.CreatePost(ctx, post)
	})
	if err != nil {
		return "", upstreamError(ctx, "create_post", err, msgCreateFailed)
	}

	logDebug("post created", "id", id, "author", p.Subject)
	debug.Trace("blog", "post body", "id", id,
		"title", debug.Truncate(post.Title, 80),
		"content", debug.Truncate(post.Content, 200),
	)
	return id, nil
}

// ListPosts returns every post. It needs no principal.
func (s *Service) ListPosts(ctx context.Context) ([]*api.Post, error) {
	posts, err := call(ctx, s, "store", "list_posts", s.store.ListPosts)
	if err != nil {
		return nil, upstreamError(ctx, "list_posts", err, msgListFailed)
	}
	if posts == nil {
		posts = []*api.Post{}
	}
	return posts, nil
}

// UpdatePost applies a partial update to a post owned by the caller.
func (s *Service) UpdatePost(ctx context.Context, id string, req *api.UpdatePostRequest) error {
	p, apiErr := principal(ctx)
	if apiErr != nil {
		return apiErr
	}
	if !api.ValidatePostID(id) {
		return api.NewInvalidRequestError("blogId", msgInvalidPostID)
	}
	if apiErr := api.ValidatePostUpdate(req); apiErr != nil {
		return apiErr
	}

	if apiErr := s.authorize(ctx, "update_post", id, p.Subject, msgUpdateFailed); apiErr != nil {
		return apiErr
	}

	_, err := call(ctx, s, "store", "update_post", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.UpdatePost(ctx, id, *req)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return api.NewNotFoundError(msgPostNotFound)
		}
		return upstreamError(ctx, "update_post", err, msgUpdateFailed)
	}
	return nil
}

// DeletePost removes a post owned by the caller.
func (s *Service) DeletePost(ctx context.Context, id string) error {
	p, apiErr := principal(ctx)
	if apiErr != nil {
		return apiErr
	}
	if !api.ValidatePostID(id) {
		return api.NewInvalidRequestError("blogId", msgInvalidPostID)
	}

	if apiErr := s.authorize(ctx, "delete_post", id, p.Subject, msgDeleteFailed); apiErr != nil {
		return apiErr
	}

	_, err := call(ctx, s, "store", "delete_post", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.store.DeletePost(ctx, id)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return api.NewNotFoundError(msgPostNotFound)
		}
		return upstreamError(ctx, "delete_post", err, msgDeleteFailed)
	}
	return nil
}

// authorize loads the post and checks that subject is its author. No
// mutation may be issued unless it returns nil.
func (s *Service) authorize(ctx context.Context, op, id, subject, failMsg string) *api.APIError {
	post, err := call(ctx, s, "store", "get_post", func(ctx context.Context) (*api.Post, error) {
		return s.store.GetPost(ctx, id)
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return api.NewNotFoundError(msgPostNotFound)
		}
		return upstreamError(ctx, "get_post", err, failMsg)
	}

	if post.AuthorID != subject {
		slog.WarnContext(ctx, "ownership check denied",
			"operation", op,
			"post", id,
			"subject", subject,
		)
		observability.OwnershipDeniedTotal.WithLabelValues(op).Inc()
		return api.NewForbiddenError(msgNotOwner)
	}
	return nil
}
