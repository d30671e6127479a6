package blog

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/storage"
)

// fakeAuthority records calls and serves accounts from a map.
type fakeAuthority struct {
	mu        sync.Mutex
	passwords map[string]string // email -> password
	uids      map[string]string // email -> uid
	deleted   []string
	calls     int

	createErr error
	signInErr error
	deleteErr error
	block     bool // wait for ctx to end
}

func newFakeAuthority() *fakeAuthority {
	return &fakeAuthority{passwords: map[string]string{}, uids: map[string]string{}}
}

func (a *fakeAuthority) wait(ctx context.Context) error {
	if a.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (a *fakeAuthority) CreateAccount(ctx context.Context, email, password string) (*identity.Credential, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	if a.createErr != nil {
		return nil, a.createErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.passwords[email]; ok {
		return nil, identity.Reject(identity.CodeEmailExists, "")
	}
	a.passwords[email] = password
	a.uids[email] = "uid-" + email
	return &identity.Credential{UID: a.uids[email], Email: email, IDToken: "tok-" + email, ExpiresIn: time.Hour}, nil
}

func (a *fakeAuthority) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	if a.signInErr != nil {
		return nil, a.signInErr
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if pw, ok := a.passwords[email]; !ok || pw != password {
		return nil, identity.Reject(identity.CodeInvalidCredentials, "")
	}
	return &identity.Credential{UID: a.uids[email], Email: email, IDToken: "tok-" + email, ExpiresIn: time.Hour}, nil
}

func (a *fakeAuthority) DeleteAccount(ctx context.Context, cred *identity.Credential) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted = append(a.deleted, cred.UID)
	delete(a.passwords, cred.Email)
	return nil
}

// fakeStore is a map-backed Store that counts mutating calls.
type fakeStore struct {
	mu       sync.Mutex
	accounts map[string]*api.Account
	posts    map[string]*api.Post
	nextID   int

	calls     int
	mutations int

	putAccountErr error
	getErr        error
	listErr       error
	updateErr     error
	deleteErr     error
	healthErr     error
	block         bool

	onPutAccount func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[string]*api.Account{}, posts: map[string]*api.Post{}}
}

func (s *fakeStore) enter(ctx context.Context) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (s *fakeStore) PutAccount(ctx context.Context, uid string, acct *api.Account) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	if s.onPutAccount != nil {
		s.onPutAccount()
	}
	if s.putAccountErr != nil {
		return s.putAccountErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *acct
	s.accounts[uid] = &cp
	return nil
}

func (s *fakeStore) GetAccount(ctx context.Context, uid string) (*api.Account, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[uid]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *fakeStore) CreatePost(ctx context.Context, post *api.Post) (string, error) {
	if err := s.enter(ctx); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations++
	s.nextID++
	cp := *post
	cp.ID = "post" + string(rune('a'+s.nextID-1))
	s.posts[cp.ID] = &cp
	return cp.ID, nil
}

func (s *fakeStore) GetPost(ctx context.Context, id string) (*api.Post, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	if s.getErr != nil {
		return nil, s.getErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *fakeStore) ListPosts(ctx context.Context) ([]*api.Post, error) {
	if err := s.enter(ctx); err != nil {
		return nil, err
	}
	if s.listErr != nil {
		return nil, s.listErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*api.Post, 0, len(s.posts))
	for _, p := range s.posts {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) UpdatePost(ctx context.Context, id string, u api.PostUpdate) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	if s.updateErr != nil {
		return s.updateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations++
	p, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Apply(p)
	return nil
}

func (s *fakeStore) DeletePost(ctx context.Context, id string) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutations++
	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.posts, id)
	return nil
}

func (s *fakeStore) HealthCheck(ctx context.Context) error {
	if err := s.enter(ctx); err != nil {
		return err
	}
	return s.healthErr
}

func (s *fakeStore) Close() error { return nil }

var errBoom = errors.New("boom")

var (
	_ Store              = (*fakeStore)(nil)
	_ identity.Authority = (*fakeAuthority)(nil)
)
