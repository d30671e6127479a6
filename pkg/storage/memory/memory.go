// Package memory provides an in-memory implementation of blog.Store and
// local.CredentialStore for tests and single-process deployments. Data is
// lost when the process restarts.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/blog"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/identity/local"
	"github.com/rhuss/scribe/pkg/storage"
)

// Store keeps accounts, posts, and local credentials in maps guarded by a
// single RWMutex. Values are copied on the way in and out.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*api.Account
	posts    map[string]*api.Post

	credsByEmail map[string]*identity.PasswordRecord
	credsByUID   map[string]*identity.PasswordRecord

	newID func() string
}

// Ensure Store implements the consumer interfaces at compile time.
var (
	_ blog.Store            = (*Store)(nil)
	_ local.CredentialStore = (*Store)(nil)
)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts:     make(map[string]*api.Account),
		posts:        make(map[string]*api.Post),
		credsByEmail: make(map[string]*identity.PasswordRecord),
		credsByUID:   make(map[string]*identity.PasswordRecord),
		newID:        api.NewPostID,
	}
}

// PutAccount writes the account for uid.
func (s *Store) PutAccount(_ context.Context, uid string, acct *api.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[uid] = copyAccount(acct)
	return nil
}

// GetAccount returns the account for uid or storage.ErrNotFound.
func (s *Store) GetAccount(_ context.Context, uid string) (*api.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.accounts[uid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyAccount(acct), nil
}

// CreatePost stores post under a fresh ID.
func (s *Store) CreatePost(_ context.Context, post *api.Post) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for s.posts[id] != nil {
		id = s.newID()
	}

	cp := *post
	cp.ID = id
	s.posts[id] = &cp
	return id, nil
}

// GetPost returns the post or storage.ErrNotFound.
func (s *Store) GetPost(_ context.Context, id string) (*api.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListPosts returns all posts ordered by creation time, then ID.
func (s *Store) ListPosts(_ context.Context) ([]*api.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*api.Post, 0, len(s.posts))
	for _, p := range s.posts {
		cp := *p
		out = append(out, &cp)
	}
	slices.SortFunc(out, storage.ComparePosts)
	return out, nil
}

// UpdatePost applies the set fields of u.
func (s *Store) UpdatePost(_ context.Context, id string, u api.PostUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Apply(p)
	return nil
}

// DeletePost removes the post.
func (s *Store) DeletePost(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

// SaveCredential stores a local password record.
func (s *Store) SaveCredential(_ context.Context, rec *identity.PasswordRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.credsByEmail[rec.Email]; exists {
		return storage.ErrConflict
	}
	if _, exists := s.credsByUID[rec.UID]; exists {
		return storage.ErrConflict
	}
	cp := *rec
	s.credsByEmail[rec.Email] = &cp
	s.credsByUID[rec.UID] = &cp
	return nil
}

// GetCredentialByEmail looks up a local password record.
func (s *Store) GetCredentialByEmail(_ context.Context, email string) (*identity.PasswordRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.credsByEmail[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// DeleteCredential removes the password record of uid, if any.
func (s *Store) DeleteCredential(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.credsByUID[uid]; ok {
		delete(s.credsByEmail, rec.Email)
		delete(s.credsByUID, uid)
	}
	return nil
}

// HealthCheck always succeeds.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

func copyAccount(a *api.Account) *api.Account {
	cp := *a
	cp.Posts = slices.Clone(a.Posts)
	if cp.Posts == nil {
		cp.Posts = []string{}
	}
	return &cp
}
