package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// migrationsFS holds the goose SQL migrations. The statements are written in
// the subset shared by SQLite and PostgreSQL so one set serves both.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations applies all pending migrations.
func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}
