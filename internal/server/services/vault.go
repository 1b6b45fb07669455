// Package services implements the vault's application operations: upload,
// download, deletion and share management. Services orchestrate the cipher,
// the repositories and the blob store; nothing below this layer ever sees
// plaintext at rest, and nothing above it ever sees ciphertext.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/common"
	"docvault/internal/cryptox"
	"docvault/internal/dbx"
	"docvault/internal/filex"
	"docvault/internal/logging"
	"docvault/internal/server/access"
	"docvault/internal/server/blob"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/repomanager"
)

// VaultService owns the document lifecycle: encrypted upload, access-checked
// download with best-effort accounting, listing and cascading deletion.
type VaultService struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	blobs   blob.Store
	cipher  *cryptox.Cipher
	logger  logging.Logger
	events  *prometheus.CounterVec
	nowFunc func() time.Time
}

func NewVaultService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	blobs blob.Store,
	cipher *cryptox.Cipher,
	logger logging.Logger,
	events *prometheus.CounterVec,
) *VaultService {
	return &VaultService{
		db:      db,
		repos:   repos,
		blobs:   blobs,
		cipher:  cipher,
		logger:  logger.With("module", "vault_service"),
		events:  events,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// DownloadResult carries decrypted content back to the transport layer
// together with the display filename. The plaintext exists only for the
// lifetime of the request.
type DownloadResult struct {
	FileName  string
	Content   []byte
	Downloads int64
}

// SharedDocument pairs an active grant with the document it exposes.
type SharedDocument struct {
	Share    *models.DocumentShare
	Document *models.Document
}

// Upload encrypts content and metadata and persists both. The blob is
// written first; if the metadata insert then fails, the blob is removed
// again so no observer ever sees partial state in either direction.
func (s *VaultService) Upload(ctx context.Context, ownerID, title, description string, docType models.DocType, fileName string, content []byte) (*models.Document, error) {
	if docType == "" {
		docType = models.DocTypeOther
	}
	if !models.ValidDocType(docType) {
		return nil, fmt.Errorf("%w: unknown doc type %q", common.ErrValidation, docType)
	}

	ciphertext, err := s.cipher.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}

	key := blob.NewStorageKey()
	if err := s.blobs.Put(ctx, key, ciphertext); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	doc := &models.Document{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		DocType:     docType,
		FileName:    filex.CleanFileName(fileName),
		BlobRef:     key,
		UploadedAt:  s.nowFunc(),
	}

	if err := s.repos.Documents(s.db).Create(ctx, doc); err != nil {
		// compensate: the record never became visible, so the blob must go too
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error(ctx, "orphaned blob after failed upload", "blob_ref", key, "error", delErr.Error())
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.events.WithLabelValues("document_uploaded").Inc()
	s.logger.Info(ctx, "document uploaded", "document_id", doc.ID, "doc_type", string(docType))
	return doc, nil
}

// Get returns one document's decrypted metadata.
func (s *VaultService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.repos.Documents(s.db).GetByID(ctx, id)
}

// ListOwned returns the user's documents, newest first.
func (s *VaultService) ListOwned(ctx context.Context, userID string) ([]*models.Document, error) {
	return s.repos.Documents(s.db).SelectByOwner(ctx, userID)
}

// ListSharedWith returns documents other users currently share with userID.
// Grants whose document disappeared between queries are skipped.
func (s *VaultService) ListSharedWith(ctx context.Context, userID string, now time.Time) ([]*SharedDocument, error) {
	grants, err := s.repos.Shares(s.db).SelectActiveForUser(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	docs := s.repos.Documents(s.db)
	var result []*SharedDocument
	for _, g := range grants {
		doc, err := docs.GetByID(ctx, g.DocumentID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		result = append(result, &SharedDocument{Share: g, Document: doc})
	}
	return result, nil
}

// Download runs the full download path: lookup, access evaluation, blob
// fetch, decryption, accounting. The error kind tells callers apart:
// ErrNotFound, ErrForbidden, ErrBlobMissing and ErrCorruptedContent never
// get conflated. A counter-update failure is logged and does not fail an
// otherwise successful download.
func (s *VaultService) Download(ctx context.Context, documentID, userID string, now time.Time) (*DownloadResult, error) {
	docs := s.repos.Documents(s.db)

	doc, err := docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	evaluator := access.NewEvaluator(s.repos.Shares(s.db))
	allowed, err := evaluator.CanDownload(ctx, doc, userID, now)
	if err != nil {
		return nil, fmt.Errorf("evaluate access: %w", err)
	}
	if !allowed {
		return nil, common.ErrForbidden
	}

	ciphertext, err := s.blobs.Get(ctx, doc.BlobRef)
	if err != nil {
		if errors.Is(err, common.ErrBlobMissing) {
			// record outlived its blob: upload atomicity was violated somewhere
			s.events.WithLabelValues("blob_missing").Inc()
			s.logger.Error(ctx, "document blob missing", "document_id", doc.ID, "blob_ref", doc.BlobRef)
		}
		return nil, err
	}

	plaintext, err := s.cipher.Decrypt(ciphertext)
	if err != nil {
		if errors.Is(err, cryptox.ErrIntegrity) {
			s.events.WithLabelValues("corrupted_content").Inc()
			s.logger.Error(ctx, "decryption failed, key mismatch or storage corruption",
				"document_id", doc.ID, "blob_ref", doc.BlobRef, "ciphertext_len", len(ciphertext))
			return nil, fmt.Errorf("%w: document %s", common.ErrCorruptedContent, doc.ID)
		}
		return nil, err
	}

	downloads, err := docs.IncrementDownloads(ctx, doc.ID)
	if err != nil {
		// accounting is best effort; the user still gets the file
		s.events.WithLabelValues("counter_update_failed").Inc()
		s.logger.Warn(ctx, "download counter update failed", "document_id", doc.ID, "error", err.Error())
		downloads = doc.Downloads
	}

	s.events.WithLabelValues("document_downloaded").Inc()
	return &DownloadResult{
		FileName:  doc.FileName,
		Content:   plaintext,
		Downloads: downloads,
	}, nil
}

// Delete removes a document, its shares and its blob. Only the owner may
// delete. The record and shares go in one transaction; the blob is removed
// after commit, and a failure there leaves only an unreachable orphan.
func (s *VaultService) Delete(ctx context.Context, documentID, userID string) error {
	doc, err := s.repos.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != userID {
		return common.ErrForbidden
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Shares(tx).DeleteByDocument(ctx, doc.ID); err != nil {
			return err
		}
		return s.repos.Documents(tx).Delete(ctx, doc.ID)
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := s.blobs.Delete(ctx, doc.BlobRef); err != nil {
		s.logger.Warn(ctx, "blob cleanup failed after delete", "blob_ref", doc.BlobRef, "error", err.Error())
	}

	s.events.WithLabelValues("document_deleted").Inc()
	s.logger.Info(ctx, "document deleted", "document_id", doc.ID)
	return nil
}
