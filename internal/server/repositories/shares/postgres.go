// Package shares provides the PostgreSQL-backed repository for share
// grants. Expired rows are left in place; every query that cares about
// validity filters on a caller-supplied instant.
package shares

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docvault/internal/common"
	"docvault/internal/cryptox"
	"docvault/internal/dbx"
	"docvault/internal/server/models"
)

// PostgresRepository implements share storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db     dbx.DBTX
	cipher *cryptox.Cipher
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cipher *cryptox.Cipher) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher}
}

// Create inserts a share row, encrypting the token first.
func (r *PostgresRepository) Create(ctx context.Context, share *models.DocumentShare) error {
	token, err := r.cipher.EncryptString(share.Token)
	if err != nil {
		return fmt.Errorf("encrypt token: %w", err)
	}

	query := `
		INSERT INTO document_shares (id, document_id, shared_with, token, can_download, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.db.ExecContext(ctx, query,
		share.ID, share.DocumentID, share.SharedWith, token, share.CanDownload, share.ExpiresAt, share.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID loads one share regardless of expiry. Returns common.ErrNotFound
// when absent.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.DocumentShare, error) {
	query := `
		SELECT id, document_id, shared_with, token, can_download, expires_at, created_at
		FROM document_shares
		WHERE id = $1
	`
	share, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, err
	}
	return share, nil
}

// FindActive returns the most permissive share for (document, user) still
// valid at now, preferring downloadable grants and later expiries. The
// expiry comparison is strict. A nil share with nil error means no match.
func (r *PostgresRepository) FindActive(ctx context.Context, documentID, userID string, now time.Time) (*models.DocumentShare, error) {
	query := `
		SELECT id, document_id, shared_with, token, can_download, expires_at, created_at
		FROM document_shares
		WHERE document_id = $1 AND shared_with = $2 AND expires_at > $3
		ORDER BY can_download DESC, expires_at DESC
		LIMIT 1
	`
	share, err := r.scanOne(r.db.QueryRowContext(ctx, query, documentID, userID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return share, nil
}

// SelectActiveForUser lists every non-expired downloadable grant held by
// the user, soonest to expire last.
func (r *PostgresRepository) SelectActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.DocumentShare, error) {
	query := `
		SELECT id, document_id, shared_with, token, can_download, expires_at, created_at
		FROM document_shares
		WHERE shared_with = $1 AND expires_at > $2 AND can_download
		ORDER BY expires_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to select shares: %w", err)
	}
	defer rows.Close()

	var result []*models.DocumentShare
	for rows.Next() {
		var (
			share models.DocumentShare
			token []byte
		)
		if err := rows.Scan(
			&share.ID, &share.DocumentID, &share.SharedWith, &token,
			&share.CanDownload, &share.ExpiresAt, &share.CreatedAt,
		); err != nil {
			return nil, err
		}
		plain, err := r.cipher.DecryptString(token)
		if err != nil {
			return nil, fmt.Errorf("decrypt token: %w", err)
		}
		share.Token = plain
		result = append(result, &share)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Delete removes one share row. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM document_shares WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// DeleteByDocument removes every share of a document. Zero rows is fine;
// the document may never have been shared.
func (r *PostgresRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_shares WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.DocumentShare, error) {
	var (
		share models.DocumentShare
		token []byte
	)
	err := row.Scan(
		&share.ID, &share.DocumentID, &share.SharedWith, &token,
		&share.CanDownload, &share.ExpiresAt, &share.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	plain, err := r.cipher.DecryptString(token)
	if err != nil {
		return nil, fmt.Errorf("decrypt token: %w", err)
	}
	share.Token = plain
	return &share, nil
}
