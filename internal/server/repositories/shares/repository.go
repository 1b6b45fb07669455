package shares

import (
	"context"
	"time"

	"docvault/internal/server/models"
)

// Repository owns DocumentShare grants. Tokens cross this boundary as
// plaintext and are persisted encrypted. Expiry is never enforced by the
// store itself; callers pass the evaluation instant explicitly.
type Repository interface {
	Create(ctx context.Context, share *models.DocumentShare) error
	GetByID(ctx context.Context, id string) (*models.DocumentShare, error)
	// FindActive returns the most permissive non-expired share for
	// (document, user), or nil when there is none.
	FindActive(ctx context.Context, documentID, userID string, now time.Time) (*models.DocumentShare, error)
	SelectActiveForUser(ctx context.Context, userID string, now time.Time) ([]*models.DocumentShare, error)
	Delete(ctx context.Context, id string) error
	DeleteByDocument(ctx context.Context, documentID string) error
}
