// Package repomanager vends repositories bound to a DBTX and runs the
// embedded goose migrations. Every vended repository rebinds its '?'
// placeholders for the configured dialect.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/acctmgr/internal/dbx"
	"github.com/dmitrijs2005/acctmgr/internal/migrations"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/attributes"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/permissions"
	"github.com/dmitrijs2005/acctmgr/internal/repositories/sessions"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func NewSQLRepositoryManager(d dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: d}
}

func (m *SQLRepositoryManager) Dialect() dbx.Dialect {
	return m.dialect
}

// Sessions returns a sessions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

// Attributes returns an attributes.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Attributes(db dbx.DBTX) attributes.Repository {
	return attributes.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

// Permissions returns a permissions.Repository bound to the provided DBTX.
func (m *SQLRepositoryManager) Permissions(db dbx.DBTX) permissions.Repository {
	return permissions.NewSQLRepository(dbx.WithDialect(db, m.dialect))
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations points goose at the embedded migrations and applies them.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(m.dialect.GooseDialect()); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// Open opens the database for the dialect and applies migrations. SQLite
// is limited to one connection so writes inside a transaction never wait on
// a second connection.
func Open(ctx context.Context, d dbx.Dialect, dsn string) (*sql.DB, *SQLRepositoryManager, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}
	if d == dbx.SQLite {
		db.SetMaxOpenConns(1)
	}

	m := NewSQLRepositoryManager(d)
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db migration error: %w", err)
	}
	return db, m, nil
}
