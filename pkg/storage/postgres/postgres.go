// Package postgres provides a PostgreSQL implementation of blog.Store and
// local.CredentialStore using pgx/v5 connection pooling.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/blog"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/identity/local"
	"github.com/rhuss/scribe/pkg/storage"
)

// maxIDAttempts bounds retries when a generated post ID collides.
const maxIDAttempts = 3

// Store is a PostgreSQL-backed document store.
type Store struct {
	pool  *pgxpool.Pool
	newID func() string
}

// Ensure Store implements the consumer interfaces at compile time.
var (
	_ blog.Store            = (*Store)(nil)
	_ local.CredentialStore = (*Store)(nil)
)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool, newID: api.NewPostID}

	if cfg.MigrateOnStart {
		if _, err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// PutAccount upserts the account keyed by uid.
func (s *Store) PutAccount(ctx context.Context, uid string, acct *api.Account) error {
	posts := acct.Posts
	if posts == nil {
		posts = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO accounts (uid, username, email, posts)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (uid) DO UPDATE
		SET username = EXCLUDED.username,
		    email = EXCLUDED.email,
		    posts = EXCLUDED.posts,
		    updated_at = now()
	`, uid, acct.Username, acct.Email, posts)
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

// GetAccount reads the account keyed by uid.
func (s *Store) GetAccount(ctx context.Context, uid string) (*api.Account, error) {
	var acct api.Account
	err := s.pool.QueryRow(ctx,
		"SELECT username, email, posts FROM accounts WHERE uid = $1", uid,
	).Scan(&acct.Username, &acct.Email, &acct.Posts)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	if acct.Posts == nil {
		acct.Posts = []string{}
	}
	return &acct, nil
}

// CreatePost inserts post under a freshly generated ID.
func (s *Store) CreatePost(ctx context.Context, post *api.Post) (string, error) {
	for attempt := 0; ; attempt++ {
		id := s.newID()
		_, err := s.pool.Exec(ctx, `
			INSERT INTO posts (id, title, content, author_id, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, id, post.Title, post.Content, post.AuthorID, post.CreatedAt)
		if err == nil {
			return id, nil
		}
		if !isDuplicateKey(err) || attempt+1 >= maxIDAttempts {
			return "", fmt.Errorf("inserting post: %w", err)
		}
	}
}

const postColumns = "id, title, content, author_id, created_at"

// GetPost reads one post.
func (s *Store) GetPost(ctx context.Context, id string) (*api.Post, error) {
	post, err := scanPost(s.pool.QueryRow(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}
	return post, nil
}

// ListPosts returns all posts ordered by creation time, then ID.
func (s *Store) ListPosts(ctx context.Context) ([]*api.Post, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+postColumns+` FROM posts ORDER BY created_at, id COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()

	posts := []*api.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// UpdatePost applies the set fields of u in a single statement.
func (s *Store) UpdatePost(ctx context.Context, id string, u api.PostUpdate) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE posts
		SET title = COALESCE($2::text, title),
		    content = COALESCE($3::text, content)
		WHERE id = $1
	`, id, u.Title, u.Content)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SaveCredential inserts a local password record.
func (s *Store) SaveCredential(ctx context.Context, rec *identity.PasswordRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (uid, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.UID, rec.Email, rec.PasswordHash, rec.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

// GetCredentialByEmail reads a local password record.
func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*identity.PasswordRecord, error) {
	var rec identity.PasswordRecord
	err := s.pool.QueryRow(ctx,
		"SELECT uid, email, password_hash, created_at FROM credentials WHERE email = $1", email,
	).Scan(&rec.UID, &rec.Email, &rec.PasswordHash, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// DeleteCredential removes the password record of uid, if any.
func (s *Store) DeleteCredential(ctx context.Context, uid string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM credentials WHERE uid = $1", uid); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanPost(row pgx.Row) (*api.Post, error) {
	var p api.Post
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
