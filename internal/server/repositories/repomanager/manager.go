package repomanager

import (
	"context"
	"database/sql"

	"docvault/internal/dbx"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/shares"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run them against either the pool or an open transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Documents(db dbx.DBTX) documents.Repository
	Shares(db dbx.DBTX) shares.Repository
}
