// Package sqlite provides a single-file SQLite implementation of blog.Store
// and local.CredentialStore using the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rhuss/scribe/pkg/api"
	"github.com/rhuss/scribe/pkg/blog"
	"github.com/rhuss/scribe/pkg/identity"
	"github.com/rhuss/scribe/pkg/identity/local"
	"github.com/rhuss/scribe/pkg/storage"
)

// maxIDAttempts bounds retries when a generated post ID collides.
const maxIDAttempts = 3

// Store is a SQLite-backed document store.
type Store struct {
	db    *sql.DB
	newID func() string
}

var (
	_ blog.Store            = (*Store)(nil)
	_ local.CredentialStore = (*Store)(nil)
)

// Open opens (creating if needed) the database at path and applies pending
// migrations. ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// from splitting across connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db, newID: api.NewPostID}
	if _, err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	slog.Debug("sqlite store initialized", "path", path)
	return s, nil
}

// migrations is an ordered list of SQL migrations. Each runs exactly once,
// tracked by the schema_version table. Append only.
var migrations = []string{
	// 1: blog tables
	`
CREATE TABLE IF NOT EXISTS accounts (
	uid TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	posts TEXT NOT NULL DEFAULT '[]',
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	author_id TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at, id);
CREATE INDEX IF NOT EXISTS idx_posts_author_id ON posts(author_id);
`,
	// 2: local identity authority credentials
	`
CREATE TABLE IF NOT EXISTS credentials (
	uid TEXT PRIMARY KEY,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
`,
}

// Migrate applies pending migrations and returns how many ran.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return 0, err
	}

	var current int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_version`,
	).Scan(&current); err != nil {
		return 0, err
	}

	applied := 0
	for i := current; i < len(migrations); i++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return applied, err
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			tx.Rollback()
			return applied, fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, err
		}
		slog.Info("applied migration", "backend", "sqlite", "version", i+1)
		applied++
	}
	return applied, nil
}

// PutAccount upserts the account keyed by uid.
func (s *Store) PutAccount(ctx context.Context, uid string, acct *api.Account) error {
	posts := acct.Posts
	if posts == nil {
		posts = []string{}
	}
	encoded, err := json.Marshal(posts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO accounts (uid, username, email, posts, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(uid) DO UPDATE SET
	username = excluded.username,
	email = excluded.email,
	posts = excluded.posts,
	updated_at = excluded.updated_at
`, uid, acct.Username, acct.Email, string(encoded), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}
	return nil
}

// GetAccount reads the account keyed by uid.
func (s *Store) GetAccount(ctx context.Context, uid string) (*api.Account, error) {
	var (
		acct  api.Account
		posts string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT username, email, posts FROM accounts WHERE uid = ?`, uid,
	).Scan(&acct.Username, &acct.Email, &posts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	if err := json.Unmarshal([]byte(posts), &acct.Posts); err != nil {
		return nil, fmt.Errorf("decoding account posts: %w", err)
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
		_, err := s.db.ExecContext(ctx, `
INSERT INTO posts (id, title, content, author_id, created_at)
VALUES (?, ?, ?, ?, ?)
`, id, post.Title, post.Content, post.AuthorID, post.CreatedAt.UnixNano())
		if err == nil {
			return id, nil
		}
		if !isConstraintError(err) || attempt+1 >= maxIDAttempts {
			return "", fmt.Errorf("inserting post: %w", err)
		}
	}
}

const postColumns = `id, title, content, author_id, created_at`

// GetPost reads one post.
func (s *Store) GetPost(ctx context.Context, id string) (*api.Post, error) {
	post, err := scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying post: %w", err)
	}
	return post, nil
}

// ListPosts returns all posts ordered by creation time, then ID.
func (s *Store) ListPosts(ctx context.Context) ([]*api.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts ORDER BY created_at, id`)
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
	res, err := s.db.ExecContext(ctx, `
UPDATE posts
SET title = COALESCE(?, title),
	content = COALESCE(?, content)
WHERE id = ?
`, nullable(u.Title), nullable(u.Content), id)
	if err != nil {
		return fmt.Errorf("updating post: %w", err)
	}
	return requireRow(res)
}

// DeletePost removes a post.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting post: %w", err)
	}
	return requireRow(res)
}

// SaveCredential inserts a local password record.
func (s *Store) SaveCredential(ctx context.Context, rec *identity.PasswordRecord) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credentials (uid, email, password_hash, created_at)
VALUES (?, ?, ?, ?)
`, rec.UID, rec.Email, rec.PasswordHash, rec.CreatedAt.UnixNano())
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting credential: %w", err)
	}
	return nil
}

// GetCredentialByEmail reads a local password record.
func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*identity.PasswordRecord, error) {
	var (
		rec     identity.PasswordRecord
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, password_hash, created_at FROM credentials WHERE email = ?`, email,
	).Scan(&rec.UID, &rec.Email, &rec.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, nil
}

// DeleteCredential removes the password record of uid, if any.
func (s *Store) DeleteCredential(ctx context.Context, uid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}
	return nil
}

// HealthCheck verifies the database is reachable.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanPost(row interface{ Scan(...any) error }) (*api.Post, error) {
	var (
		p       api.Post
		created int64
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.AuthorID, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	return &p, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// isConstraintError reports a PRIMARY KEY or UNIQUE violation.
func isConstraintError(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
