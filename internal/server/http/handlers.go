// Package http exposes the vault over a JSON/multipart HTTP API secured by
// bearer JWTs. It maps the service-layer sentinel errors onto status codes
// and never leaks plaintext or key material into logs.
package http

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docvault/internal/common"
	"docvault/internal/logging"
	"docvault/internal/server/models"
	"docvault/internal/server/services"
)

// 25MB, matches the largest scanned document we expect
const maxUploadSize = int64(25 << 20)

// DocumentService is the document-lifecycle surface the handlers need.
type DocumentService interface {
	Upload(ctx context.Context, ownerID, title, description string, docType models.DocType, fileName string, content []byte) (*models.Document, error)
	ListOwned(ctx context.Context, userID string) ([]*models.Document, error)
	ListSharedWith(ctx context.Context, userID string, now time.Time) ([]*services.SharedDocument, error)
	Download(ctx context.Context, documentID, userID string, now time.Time) (*services.DownloadResult, error)
	Delete(ctx context.Context, documentID, userID string) error
}

// GrantService is the share-management surface the handlers need.
type GrantService interface {
	Grant(ctx context.Context, documentID, requesterID, sharedWith string, canDownload bool, ttl time.Duration) (*models.DocumentShare, error)
	Revoke(ctx context.Context, shareID, requesterID string) error
}

type VaultController struct {
	documents DocumentService
	grants    GrantService
	logger    logging.Logger
	nowFunc   func() time.Time
}

func NewVaultController(documents DocumentService, grants GrantService, logger logging.Logger) *VaultController {
	return &VaultController{
		documents: documents,
		grants:    grants,
		logger:    logger.With("module", "http"),
		nowFunc:   func() time.Time { return time.Now().UTC() },
	}
}

type documentResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DocType     string `json:"doc_type"`
	FileName    string `json:"file_name"`
	UploadedAt  string `json:"uploaded_at"`
	Downloads   int64  `json:"downloads"`
}

type sharedDocumentResponse struct {
	documentResponse
	SharedBy  string `json:"shared_by"`
	ExpiresAt string `json:"expires_at"`
}

type shareResponse struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	SharedWith  string `json:"shared_with"`
	Token       string `json:"token"`
	CanDownload bool   `json:"can_download"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
}

type grantRequest struct {
	SharedWith  string `json:"shared_with"`
	CanDownload bool   `json:"can_download"`
	TTL         string `json:"ttl,omitempty"`
}

func toDocumentResponse(d *models.Document) documentResponse {
	return documentResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		DocType:     string(d.DocType),
		FileName:    d.FileName,
		UploadedAt:  d.UploadedAt.Format(time.RFC3339),
		Downloads:   d.Downloads,
	}
}

func toShareResponse(s *models.DocumentShare) shareResponse {
	return shareResponse{
		ID:          s.ID,
		DocumentID:  s.DocumentID,
		SharedWith:  s.SharedWith,
		Token:       s.Token,
		CanDownload: s.CanDownload,
		ExpiresAt:   s.ExpiresAt.Format(time.RFC3339),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

// writeError maps service-layer sentinels onto HTTP statuses. Unrecognized
// errors become an opaque 500; their detail goes to the log only.
func (vc *VaultController) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, common.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, common.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		vc.logger.Error(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (vc *VaultController) UploadHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fh.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		vc.writeError(c, err)
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		vc.writeError(c, err)
		return
	}

	doc, err := vc.documents.Upload(
		c.Request.Context(),
		userID,
		c.PostForm("title"),
		c.PostForm("description"),
		models.DocType(c.PostForm("doc_type")),
		fh.Filename,
		content,
	)
	if err != nil {
		vc.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

func (vc *VaultController) ListHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	docs, err := vc.documents.ListOwned(c.Request.Context(), userID)
	if err != nil {
		vc.writeError(c, err)
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		resp = append(resp, toDocumentResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (vc *VaultController) ListSharedHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	shared, err := vc.documents.ListSharedWith(c.Request.Context(), userID, vc.nowFunc())
	if err != nil {
		vc.writeError(c, err)
		return
	}

	resp := make([]sharedDocumentResponse, 0, len(shared))
	for _, s := range shared {
		resp = append(resp, sharedDocumentResponse{
			documentResponse: toDocumentResponse(s.Document),
			SharedBy:         s.Document.OwnerID,
			ExpiresAt:        s.Share.ExpiresAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (vc *VaultController) DownloadHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	result, err := vc.documents.Download(c.Request.Context(), c.Param("id"), userID, vc.nowFunc())
	if err != nil {
		vc.writeError(c, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": result.FileName})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, "application/octet-stream", result.Content)
}

func (vc *VaultController) DeleteHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	if err := vc.documents.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		vc.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (vc *VaultController) GrantHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ttl must be a positive duration"})
			return
		}
		ttl = parsed
	}

	share, err := vc.grants.Grant(c.Request.Context(), c.Param("id"), userID, req.SharedWith, req.CanDownload, ttl)
	if err != nil {
		vc.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toShareResponse(share))
}

func (vc *VaultController) RevokeHandler(c *gin.Context) {
	userID := c.GetString(CtxUserID)

	if err := vc.grants.Revoke(c.Request.Context(), c.Param("id"), userID); err != nil {
		vc.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
