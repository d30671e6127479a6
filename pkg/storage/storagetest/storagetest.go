// Package storagetest provides a conformance suite for document store
// adapters. Adapter tests call Run with a constructor for an empty store.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/storage"
)

// Store is what every adapter implements.
type Store interface {
	PutAccount(ctx context.Context, uid string, acct *api.Account) error
	GetAccount(ctx context.Context, uid string) (*api.Account, error)
	CreatePost(ctx context.Context, post *api.Post) (string, error)
	GetPost(ctx context.Context, id string) (*api.Post, error)
	ListPosts(ctx context.Context) ([]*api.Post, error)
	UpdatePost(ctx context.Context, id string, u api.PostUpdate) error
	DeletePost(ctx context.Context, id string) error
	HealthCheck(ctx context.Context) error

	SaveCredential(ctx context.Context, rec *identity.PasswordRecord) error
	GetCredentialByEmail(ctx context.Context, email string) (*identity.PasswordRecord, error)
	DeleteCredential(ctx context.Context, uid string) error
}

// Run executes the suite. newStore must return an empty store; each subtest
// gets its own.
func Run(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s Store)
	}{
		{"Accounts", testAccounts},
		{"CreateAndGetPost", testCreateAndGetPost},
		{"ListOrder", testListOrder},
		{"UpdatePost", testUpdatePost},
		{"DeletePost", testDeletePost},
		{"Credentials", testCredentials},
		{"ConcurrentCreate", testConcurrentCreate},
		{"HealthCheck", func(t *testing.T, s Store) {
			if err := s.HealthCheck(context.Background()); err != nil {
				t.Fatalf("HealthCheck: %v", err)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

// base is a fixed timestamp with second precision, which every backend
// round-trips exactly.
var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPost(title, author string, at time.Time) *api.Post {
	return &api.Post{Title: title, Content: title + " body", AuthorID: author, CreatedAt: at}
}

func testAccounts(t *testing.T, s Store) {
	ctx := context.Background()

	if _, err := s.GetAccount(ctx, "uid-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("GetAccount missing: err = %v, want ErrNotFound", err)
	}

	if err := s.PutAccount(ctx, "uid-1", api.NewAccount("al", "a@x.com")); err != nil {
		t.Fatalf("PutAccount: %v", err)
	}
	got, err := s.GetAccount(ctx, "uid-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Username != "al" || got.Email != "a@x.com" {
		t.Errorf("account = %+v", got)
	}
	if got.Posts == nil || len(got.Posts) != 0 {
		t.Errorf("Posts = %#v, want empty non-nil", got.Posts)
	}

	// Put replaces.
	if err := s.PutAccount(ctx, "uid-1", &api.Account{Username: "al2", Email: "a@x.com", Posts: []string{"p1"}}); err != nil {
		t.Fatalf("PutAccount replace: %v", err)
	}
	got, err = s.GetAccount(ctx, "uid-1")
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if got.Username != "al2" || len(got.Posts) != 1 || got.Posts[0] != "p1" {
		t.Errorf("replaced account = %+v", got)
	}
}

func testCreateAndGetPost(t *testing.T, s Store) {
	ctx := context.Background()

	id, err := s.CreatePost(ctx, newPost("hello", "alice", base))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if !api.ValidatePostID(id) {
		t.Errorf("generated id %q is not a valid post id", id)
	}

	got, err := s.GetPost(ctx, id)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if got.ID != id || got.Title != "hello" || got.Content != "hello body" || got.AuthorID != "alice" {
		t.Errorf("post = %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	if _, err := s.GetPost(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetPost missing: err = %v, want ErrNotFound", err)
	}

	// Returned values are copies.
	got.Title = "mutated"
	again, _ := s.GetPost(ctx, id)
	if again.Title != "hello" {
		t.Error("mutating a returned post changed the store")
	}
}

func testListOrder(t *testing.T, s Store) {
	ctx := context.Background()

	empty, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("ListPosts on empty store = %d posts", len(empty))
	}

	titles := []string{"third", "first", "second"}
	offsets := []time.Duration{2 * time.Minute, 0, time.Minute}
	for i := range titles {
		if _, err := s.CreatePost(ctx, newPost(titles[i], "alice", base.Add(offsets[i]))); err != nil {
			t.Fatalf("CreatePost: %v", err)
		}
	}

	first, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("len = %d, want 3", len(first))
	}
	for i, want := range []string{"first", "second", "third"} {
		if first[i].Title != want {
			t.Errorf("posts[%d].Title = %q, want %q", i, first[i].Title, want)
		}
		if first[i].ID == "" {
			t.Errorf("posts[%d] has no id", i)
		}
	}

	second, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("list is not stable: %q vs %q", first[i].ID, second[i].ID)
		}
	}
}

func testUpdatePost(t *testing.T, s Store) {
	ctx := context.Background()

	id, err := s.CreatePost(ctx, newPost("orig", "alice", base))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}

	title := "new title"
	if err := s.UpdatePost(ctx, id, api.PostUpdate{Title: &title}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	got, _ := s.GetPost(ctx, id)
	if got.Title != "new title" || got.Content != "orig body" {
		t.Errorf("after title update: %+v", got)
	}

	content := "new body"
	if err := s.UpdatePost(ctx, id, api.PostUpdate{Content: &content}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	got, _ = s.GetPost(ctx, id)
	if got.Title != "new title" || got.Content != "new body" {
		t.Errorf("after content update: %+v", got)
	}
	if got.AuthorID != "alice" || !got.CreatedAt.Equal(base) {
		t.Errorf("update changed immutable fields: %+v", got)
	}

	if err := s.UpdatePost(ctx, "missing", api.PostUpdate{Title: &title}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("UpdatePost missing: err = %v, want ErrNotFound", err)
	}
}

func testDeletePost(t *testing.T, s Store) {
	ctx := context.Background()

	id, err := s.CreatePost(ctx, newPost("doomed", "alice", base))
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if err := s.DeletePost(ctx, id); err != nil {
		t.Fatalf("DeletePost: %v", err)
	}
	if _, err := s.GetPost(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetPost after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeletePost(ctx, id); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeletePost: err = %v, want ErrNotFound", err)
	}
}

func testCredentials(t *testing.T, s Store) {
	ctx := context.Background()

	rec := &identity.PasswordRecord{UID: "uid-1", Email: "a@x.com", PasswordHash: "$2a$hash", CreatedAt: base}
	if err := s.SaveCredential(ctx, rec); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	got, err := s.GetCredentialByEmail(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("GetCredentialByEmail: %v", err)
	}
	if got.UID != "uid-1" || got.PasswordHash != "$2a$hash" {
		t.Errorf("credential = %+v", got)
	}

	dup := &identity.PasswordRecord{UID: "uid-2", Email: "a@x.com", PasswordHash: "x", CreatedAt: base}
	if err := s.SaveCredential(ctx, dup); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate email: err = %v, want ErrConflict", err)
	}

	if _, err := s.GetCredentialByEmail(ctx, "b@x.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("unknown email: err = %v, want ErrNotFound", err)
	}

	if err := s.DeleteCredential(ctx, "uid-1"); err != nil {
		t.Fatalf("DeleteCredential: %v", err)
	}
	if _, err := s.GetCredentialByEmail(ctx, "a@x.com"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("after delete: err = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCredential(ctx, "uid-1"); err != nil {
		t.Errorf("deleting a missing credential: %v", err)
	}
}

func testConcurrentCreate(t *testing.T, s Store) {
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	ids := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = s.CreatePost(ctx, newPost(fmt.Sprintf("p%d", i), "alice", base))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("CreatePost %d: %v", i, errs[i])
		}
		if seen[ids[i]] {
			t.Errorf("duplicate id %q", ids[i])
		}
		seen[ids[i]] = true
	}

	posts, err := s.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != n {
		t.Errorf("len = %d, want %d", len(posts), n)
	}
}
