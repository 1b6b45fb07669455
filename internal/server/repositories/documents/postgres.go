// Package documents provides the PostgreSQL-backed repository for vaulted
// document metadata. Title and description cross this boundary as
// plaintext and are persisted as AES-GCM ciphertext, so the query layer
// can never filter or sort on them.
package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"docvault/internal/common"
	"docvault/internal/cryptox"
	"docvault/internal/dbx"
	"docvault/internal/server/models"
)

// PostgresRepository implements document storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db     dbx.DBTX
	cipher *cryptox.Cipher
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX, cipher *cryptox.Cipher) *PostgresRepository {
	return &PostgresRepository{db: db, cipher: cipher}
}

// Create inserts a new document row. Metadata fields are encrypted here;
// the caller supplies them as plaintext.
func (r *PostgresRepository) Create(ctx context.Context, doc *models.Document) error {
	title, err := r.cipher.EncryptString(doc.Title)
	if err != nil {
		return fmt.Errorf("encrypt title: %w", err)
	}
	description, err := r.cipher.EncryptString(doc.Description)
	if err != nil {
		return fmt.Errorf("encrypt description: %w", err)
	}

	query := `
		INSERT INTO documents (id, owner_id, title, description, doc_type, file_name, blob_ref, uploaded_at, downloads)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0)
	`
	_, err = r.db.ExecContext(ctx, query,
		doc.ID, doc.OwnerID, title, description, string(doc.DocType), doc.FileName, doc.BlobRef, doc.UploadedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// GetByID loads one document and decrypts its metadata. Returns
// common.ErrNotFound when the id does not exist.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, owner_id, title, description, doc_type, file_name, blob_ref, uploaded_at, downloads
		FROM documents
		WHERE id = $1
	`
	var (
		doc                models.Document
		title, description []byte
		docType            string
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.OwnerID, &title, &description, &docType,
		&doc.FileName, &doc.BlobRef, &doc.UploadedAt, &doc.Downloads,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if err := r.decryptMeta(&doc, title, description); err != nil {
		return nil, err
	}
	doc.DocType = models.DocType(docType)
	return &doc, nil
}

// SelectByOwner returns the owner's documents, newest first. The filter
// runs on plaintext columns only.
func (r *PostgresRepository) SelectByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	query := `
		SELECT id, owner_id, title, description, doc_type, file_name, blob_ref, uploaded_at, downloads
		FROM documents
		WHERE owner_id = $1
		ORDER BY uploaded_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select documents: %w", err)
	}
	defer rows.Close()

	var result []*models.Document
	for rows.Next() {
		var (
			doc                models.Document
			title, description []byte
			docType            string
		)
		if err := rows.Scan(
			&doc.ID, &doc.OwnerID, &title, &description, &docType,
			&doc.FileName, &doc.BlobRef, &doc.UploadedAt, &doc.Downloads,
		); err != nil {
			return nil, err
		}
		if err := r.decryptMeta(&doc, title, description); err != nil {
			return nil, err
		}
		doc.DocType = models.DocType(docType)
		result = append(result, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// IncrementDownloads bumps the counter in a single atomic UPDATE, so
// concurrent downloads never lose updates. Returns the new value.
func (r *PostgresRepository) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	query := `
		UPDATE documents SET downloads = downloads + 1
		WHERE id = $1
		RETURNING downloads
	`
	var downloads int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&downloads)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return downloads, nil
}

// Delete removes the document row. Share rows go with it via the FK
// cascade. Exactly one row must be affected.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
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

func (r *PostgresRepository) decryptMeta(doc *models.Document, title, description []byte) error {
	t, err := r.cipher.DecryptString(title)
	if err != nil {
		return fmt.Errorf("decrypt title: %w", err)
	}
	d, err := r.cipher.DecryptString(description)
	if err != nil {
		return fmt.Errorf("decrypt description: %w", err)
	}
	doc.Title = t
	doc.Description = d
	return nil
}
