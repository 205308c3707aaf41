package persistence

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Migrations returns the schema migrations rooted at the directory holding the .sql files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

type MigrationResult struct {
	Version int64  `json:"version"`
	Source  string `json:"source"`
	Applied bool   `json:"applied"`
}

func openMigrator(dsn string) (*sql.DB, *goose.Provider, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, nil, err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("persistence: migrations: %w", err)
	}
	return db, provider, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(ctx context.Context, dsn string) ([]MigrationResult, error) {
	db, provider, err := openMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	results, err := provider.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("persistence: migrate up: %w", err)
	}
	out := make([]MigrationResult, 0, len(results))
	for _, r := range results {
		out = append(out, MigrationResult{Version: r.Source.Version, Source: r.Source.Path, Applied: true})
	}
	return out, nil
}

// MigrationStatus reports every known migration and whether it has been applied.
func MigrationStatus(ctx context.Context, dsn string) ([]MigrationResult, error) {
	db, provider, err := openMigrator(dsn)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	statuses, err := provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("persistence: migrate status: %w", err)
	}
	out := make([]MigrationResult, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, MigrationResult{
			Version: s.Source.Version,
			Source:  s.Source.Path,
			Applied: s.State == goose.StateApplied,
		})
	}
	return out, nil
}
