package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/common"
	"docvault/internal/logging"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/repomanager"
)

// tokenBytes is the entropy of a share token; 32 random bytes rendered as
// 64 hex characters. Tokens are never derived from guessable input.
const tokenBytes = 32

// ShareService owns grant and revocation of time-bounded download access.
// Expired grants are never swept; they simply stop matching at evaluation
// time.
type ShareService struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	logger     logging.Logger
	events     *prometheus.CounterVec
	defaultTTL time.Duration
	nowFunc    func() time.Time
}

func NewShareService(
	db *sql.DB,
	repos repomanager.RepositoryManager,
	logger logging.Logger,
	events *prometheus.CounterVec,
	defaultTTL time.Duration,
) *ShareService {
	return &ShareService{
		db:         db,
		repos:      repos,
		logger:     logger.With("module", "share_service"),
		events:     events,
		defaultTTL: defaultTTL,
		nowFunc:    func() time.Time { return time.Now().UTC() },
	}
}

// Grant creates a share of the document for another user. Only the owner
// may grant; a non-positive ttl falls back to the configured default.
func (s *ShareService) Grant(ctx context.Context, documentID, requesterID, sharedWith string, canDownload bool, ttl time.Duration) (*models.DocumentShare, error) {
	doc, err := s.repos.Documents(s.db).GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != requesterID {
		return nil, common.ErrForbidden
	}
	if sharedWith == doc.OwnerID {
		return nil, fmt.Errorf("%w: cannot share a document with its owner", common.ErrValidation)
	}
	if sharedWith == "" {
		return nil, fmt.Errorf("%w: missing target user", common.ErrValidation)
	}

	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	token, err := common.MakeRandHexString(tokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.nowFunc()
	share := &models.DocumentShare{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		SharedWith:  sharedWith,
		Token:       token,
		CanDownload: canDownload,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}

	if err := s.repos.Shares(s.db).Create(ctx, share); err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}

	s.events.WithLabelValues("share_granted").Inc()
	s.logger.Info(ctx, "share granted",
		"document_id", doc.ID, "share_id", share.ID, "ttl", ttl.String(), "can_download", canDownload)
	return share, nil
}

// Revoke deletes a share. Only the owner of the shared document may revoke.
func (s *ShareService) Revoke(ctx context.Context, shareID, requesterID string) error {
	share, err := s.repos.Shares(s.db).GetByID(ctx, shareID)
	if err != nil {
		return err
	}

	doc, err := s.repos.Documents(s.db).GetByID(ctx, share.DocumentID)
	if err != nil {
		return err
	}
	if doc.OwnerID != requesterID {
		return common.ErrForbidden
	}

	if err := s.repos.Shares(s.db).Delete(ctx, shareID); err != nil {
		return err
	}

	s.events.WithLabelValues("share_revoked").Inc()
	s.logger.Info(ctx, "share revoked", "document_id", doc.ID, "share_id", shareID)
	return nil
}

// FindActive returns the most permissive non-expired share for
// (document, user) at the given instant, or nil when there is none.
func (s *ShareService) FindActive(ctx context.Context, documentID, userID string, now time.Time) (*models.DocumentShare, error) {
	return s.repos.Shares(s.db).FindActive(ctx, documentID, userID, now)
}
