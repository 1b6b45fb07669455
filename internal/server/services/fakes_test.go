package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"docvault/internal/common"
	"docvault/internal/dbx"
	"docvault/internal/server/models"
	"docvault/internal/server/repositories/documents"
	"docvault/internal/server/repositories/shares"
)

// In-memory repositories backing service tests. They mirror the contracts
// of the postgres implementations, including the atomic counter update.

type memDocuments struct {
	mu        sync.Mutex
	docs      map[string]*models.Document
	createErr error
	incErr    error
}

func newMemDocuments() *memDocuments {
	return &memDocuments{docs: make(map[string]*models.Document)}
}

func (m *memDocuments) Create(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	cp := *doc
	m.docs[doc.ID] = &cp
	return nil
}

func (m *memDocuments) GetByID(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *memDocuments) SelectByOwner(ctx context.Context, ownerID string) ([]*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Document
	for _, doc := range m.docs {
		if doc.OwnerID == ownerID {
			cp := *doc
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UploadedAt.After(result[j].UploadedAt) })
	return result, nil
}

func (m *memDocuments) IncrementDownloads(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return 0, m.incErr
	}
	doc, ok := m.docs[id]
	if !ok {
		return 0, common.ErrNotFound
	}
	doc.Downloads++
	return doc.Downloads, nil
}

func (m *memDocuments) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

type memShares struct {
	mu     sync.Mutex
	shares map[string]*models.DocumentShare
}

func newMemShares() *memShares {
	return &memShares{shares: make(map[string]*models.DocumentShare)}
}

func (m *memShares) Create(ctx context.Context, share *models.DocumentShare) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *share
	m.shares[share.ID] = &cp
	return nil
}

func (m *memShares) GetByID(ctx context.Context, id string) (*models.DocumentShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	share, ok := m.shares[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *share
	return &cp, nil
}

func (m *memShares) FindActive(ctx context.Context, documentID, userID string, now time.Time) (*models.DocumentShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.DocumentShare
	for _, s := range m.shares {
		if s.DocumentID != documentID || s.SharedWith != userID || !s.Active(now) {
			continue
		}
		if best == nil ||
			(s.CanDownload && !best.CanDownload) ||
			(s.CanDownload == best.CanDownload && s.ExpiresAt.After(best.ExpiresAt)) {
			best = s
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (m *memShares) SelectActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.DocumentShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.DocumentShare
	for _, s := range m.shares {
		if s.SharedWith == userID && s.Active(now) && s.CanDownload {
			cp := *s
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *memShares) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.shares[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.shares, id)
	return nil
}

func (m *memShares) DeleteByDocument(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.shares {
		if s.DocumentID == documentID {
			delete(m.shares, id)
		}
	}
	return nil
}

// memManager vends the same in-memory repositories regardless of the DBTX,
// so transactional code paths exercise identical state.
type memManager struct {
	docs   *memDocuments
	shares *memShares
}

func newMemManager() *memManager {
	return &memManager{docs: newMemDocuments(), shares: newMemShares()}
}

func (m *memManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }

func (m *memManager) Documents(db dbx.DBTX) documents.Repository { return m.docs }

func (m *memManager) Shares(db dbx.DBTX) shares.Repository { return m.shares }
