package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/newsclient/internal/client/migrations"
	"github.com/dmitrijs2005/newsclient/internal/filex"
	"github.com/pressly/goose/v3"
)

// RunMigrations brings the session store schema up to date and returns the
// resulting schema version. Already applied migrations are skipped.
func RunMigrations(ctx context.Context, db *sql.DB) (int64, error) {
	p, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.Migrations)
	if err != nil {
		return 0, fmt.Errorf("migrations: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return 0, fmt.Errorf("migrations: up: %w", err)
	}

	version, err := p.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrations: version: %w", err)
	}
	return version, nil
}

// InitDatabase opens the SQLite session store at path, creating its
// directory if needed, and applies migrations.
func InitDatabase(ctx context.Context, path string) (*sql.DB, error) {
	if err := filex.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer at a time; concurrent sqlite writers fail with SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if _, err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
