// Package migrations embeds the SQL schema for both backing stores and
// applies it in file order.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed clickhouse/*.sql
var clickhouseFS embed.FS

//go:embed postgres/*.sql
var postgresFS embed.FS

// ClickHouseExecutor executes a single ClickHouse statement.
type ClickHouseExecutor interface {
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// PostgresExecutor executes a single PostgreSQL statement.
type PostgresExecutor interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// ApplyClickHouse applies all embedded ClickHouse migrations in order.
// Each migration file holds exactly one statement.
func ApplyClickHouse(ctx context.Context, exec ClickHouseExecutor) error {
	files, err := readSorted(clickhouseFS, "clickhouse")
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := exec.Exec(ctx, f.content); err != nil {
			return fmt.Errorf("apply clickhouse migration %s: %w", f.name, err)
		}
	}
	return nil
}

// ApplyPostgres applies all embedded PostgreSQL migrations in order.
func ApplyPostgres(ctx context.Context, exec PostgresExecutor) error {
	files, err := readSorted(postgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := exec.Exec(ctx, f.content); err != nil {
			return fmt.Errorf("apply postgres migration %s: %w", f.name, err)
		}
	}
	return nil
}

type migrationFile struct {
	name    string
	content string
}

// readSorted lists the .sql files under dir sorted by name (001_, 002_, ...).
func readSorted(fsys embed.FS, dir string) ([]migrationFile, error) {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	files := make([]migrationFile, 0, len(names))
	for _, name := range names {
		content, err := fsys.ReadFile(dir + "/" + name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		files = append(files, migrationFile{name: name, content: string(content)})
	}
	return files, nil
}
