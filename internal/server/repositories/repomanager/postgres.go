// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"docvault/internal/cryptox"
	"docvault/internal/dbx"
	"docvault/internal/server/migrations"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/shares"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations sharing one Cipher, and exposes a schema migration hook.
type PostgresRepositoryManager struct {
	cipher *cryptox.Cipher
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed
// RepositoryManager around the process cipher.
func NewPostgresRepositoryManager(cipher *cryptox.Cipher) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{cipher: cipher}
}

// Documents returns a documents.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Documents(db dbx.DBTX) documents.Repository {
	return documents.NewPostgresRepository(db, m.cipher)
}

// Shares returns a shares.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Shares(db dbx.DBTX) shares.Repository {
	return shares.NewPostgresRepository(db, m.cipher)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
