package postgres

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rhuss/scribe/pkg/debug"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migration is one embedded SQL file.
type migration struct {
	version int
	name    string
}

// Migrate applies pending schema migrations. Each file runs in its own
// transaction together with its schema_migrations row. It returns the
// number of migrations applied.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	migrations, err := listMigrations()
	if err != nil {
		return 0, err
	}

	// The first migration also creates this table; creating it here lets
	// the version lookup below run on an empty database.
	if _, err := s.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return 0, fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		var exists bool
		if err := s.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)",
			m.version,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("checking migration %s: %w", m.name, err)
		}
		if exists {
			continue
		}

		content, err := migrationFiles.ReadFile("migrations/" + m.name)
		if err != nil {
			return applied, fmt.Errorf("reading migration %s: %w", m.name, err)
		}

		slog.Info("applying migration", "backend", "postgres", "file", m.name, "version", m.version)
		debug.Log("store", "migration sql", "file", m.name, "sql", debug.Truncate(string(content), 200))

		err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				"INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING",
				m.version,
			)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("applying migration %s: %w", m.name, err)
		}
		applied++
	}

	return applied, nil
}

// listMigrations returns the embedded migrations ordered by version.
// File names start with the version ("001_create_blog_tables.sql").
func listMigrations() ([]migration, error) {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations: %w", err)
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			continue
		}
		out = append(out, migration{version: version, name: entry.Name()})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}
