package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tutordesk/pkg/utils"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the shared connection pool and owns schema migrations.
type DB struct {
	*sql.DB
}

// Open connects to Postgres and brings the schema up to date. A database
// stamped with a version this binary does not ship refuses to open:
// running an old binary against a newer schema is how data gets mangled.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*DB, error) {
	sqlDB, err := utils.OpenPostgres(ctx, "pgx", dsn, utils.PostgresPoolConfig{})
	if err != nil {
		return nil, err
	}

	db := &DB{DB: sqlDB}
	if err := db.migrate(ctx, log); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context, log *slog.Logger) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	shipped, err := shippedVersions()
	if err != nil {
		return err
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return err
	}

	// Fail closed on versions this binary does not know about.
	known := make(map[string]bool, len(shipped))
	for _, v := range shipped {
		known[v] = true
	}
	for v := range applied {
		if !known[v] {
			return fmt.Errorf("database schema version %q is newer than this binary; refusing to start", v)
		}
	}

	for _, version := range shipped {
		if applied[version] {
			continue
		}

		content, err := migrationsFS.ReadFile(path.Join("migrations", version+".sql"))
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		err = utils.WithTx(ctx, db.DB, nil, func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return fmt.Errorf("executing migration %s: %w", version, err)
			}
			if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
				return fmt.Errorf("recording migration %s: %w", version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}

		log.Info("applied migration", "version", version)
	}

	return nil
}

func shippedVersions() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		out = append(out, strings.TrimSuffix(entry.Name(), ".sql"))
	}
	sort.Strings(out)
	return out, nil
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}
